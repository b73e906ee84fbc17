package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dkhp/registration-backend/internal/logger"
	"github.com/dkhp/registration-backend/internal/middleware"
	"github.com/dkhp/registration-backend/internal/model"
	"github.com/dkhp/registration-backend/internal/response"
	"github.com/dkhp/registration-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Registrar runs enroll and unenroll batches.
type Registrar interface {
	Enroll(ctx context.Context, studentID int, courseIDs []int) (map[string]string, error)
	Unenroll(ctx context.Context, studentID int, courseIDs []int) (map[string]string, error)
	History(ctx context.Context, studentID, limit int) ([]model.RegistrationLog, error)
}

type RegistrationHandler struct {
	registrar Registrar
	log       zerolog.Logger
}

func NewRegistrationHandler(registrar Registrar, log zerolog.Logger) *RegistrationHandler {
	return &RegistrationHandler{
		registrar: registrar,
		log:       logger.Component(log, "registration_handler"),
	}
}

// Enroll godoc
// POST /api/v1/student/enroll
func (h *RegistrationHandler) Enroll(c *gin.Context) {
	h.runBatch(c, h.registrar.Enroll)
}

// Unenroll godoc
// POST /api/v1/student/unenroll
func (h *RegistrationHandler) Unenroll(c *gin.Context) {
	h.runBatch(c, h.registrar.Unenroll)
}

func (h *RegistrationHandler) runBatch(c *gin.Context, run func(context.Context, int, []int) (map[string]string, error)) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CourseBatchRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	results, err := run(c.Request.Context(), claims.UserID, req.CourseIDs)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"results": results})
}

// History godoc
// GET /api/v1/student/registrations/history?limit=
func (h *RegistrationHandler) History(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
				map[string]string{"limit": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	logs, err := h.registrar.History(c.Request.Context(), claims.UserID, limit)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"history": logs})
}
