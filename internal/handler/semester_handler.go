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

type SemesterHandler struct {
	semesterService *service.SemesterService
	log             zerolog.Logger
}

func NewSemesterHandler(semesterService *service.SemesterService, log zerolog.Logger) *SemesterHandler {
	return &SemesterHandler{
		semesterService: semesterService,
		log:             logger.Component(log, "semester_handler"),
	}
}

// List godoc
// GET /api/v1/admin/semesters
func (h *SemesterHandler) List(c *gin.Context) {
	semesters, err := h.semesterService.List(c.Request.Context())
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"semesters": semesters})
}

// ListLatest godoc
// GET /api/v1/admin/semesters/latest
func (h *SemesterHandler) ListLatest(c *gin.Context) {
	semesters, err := h.semesterService.ListLatest(c.Request.Context())
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"semesters": semesters})
}

// Create godoc
// POST /api/v1/admin/semesters
func (h *SemesterHandler) Create(c *gin.Context) {
	var req model.CreateSemesterRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sem, err := h.semesterService.Create(c.Request.Context(), &req)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"semester": sem})
}

// Delete godoc
// DELETE /api/v1/admin/semesters/:id
func (h *SemesterHandler) Delete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.semesterService.Delete(c.Request.Context(), id); err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "semester deleted successfully"})
}
