package handler

import (
	"net/http"
	"strconv"

	"github.com/dkhp/registration-backend/internal/logger"
	"github.com/dkhp/registration-backend/internal/model"
	"github.com/dkhp/registration-backend/internal/response"
	"github.com/dkhp/registration-backend/internal/service"
	"github.com/dkhp/registration-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type RegistrationPeriodHandler struct {
	periodService *service.RegistrationPeriodService
	log           zerolog.Logger
}

func NewRegistrationPeriodHandler(periodService *service.RegistrationPeriodService, log zerolog.Logger) *RegistrationPeriodHandler {
	return &RegistrationPeriodHandler{
		periodService: periodService,
		log:           logger.Component(log, "registration_period_handler"),
	}
}

// List godoc
// GET /api/v1/admin/periods
func (h *RegistrationPeriodHandler) List(c *gin.Context) {
	periods, err := h.periodService.List(c.Request.Context())
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"periods": periods})
}

// Current godoc
// GET /api/v1/student/periods/current
func (h *RegistrationPeriodHandler) Current(c *gin.Context) {
	period, err := h.periodService.CurrentPeriod(c.Request.Context())
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"period": period})
}

// Create godoc
// POST /api/v1/admin/periods
func (h *RegistrationPeriodHandler) Create(c *gin.Context) {
	var req model.RegistrationPeriodRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	period, err := h.periodService.Create(c.Request.Context(), &req)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"period": period})
}

// Update godoc
// PUT /api/v1/admin/periods/:id
func (h *RegistrationPeriodHandler) Update(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.RegistrationPeriodRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	period, err := h.periodService.Update(c.Request.Context(), id, &req)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"period": period})
}

// Delete godoc
// DELETE /api/v1/admin/periods/:id
func (h *RegistrationPeriodHandler) Delete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.periodService.Delete(c.Request.Context(), id); err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "registration period deleted successfully"})
}
