package handler

import (
	"net/http"
	"strconv"

	"github.com/dkhp/registration-backend/internal/logger"
	"github.com/dkhp/registration-backend/internal/middleware"
	"github.com/dkhp/registration-backend/internal/model"
	"github.com/dkhp/registration-backend/internal/response"
	"github.com/dkhp/registration-backend/internal/service"
	"github.com/dkhp/registration-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type CourseHandler struct {
	courseService *service.CourseService
	log           zerolog.Logger
}

func NewCourseHandler(courseService *service.CourseService, log zerolog.Logger) *CourseHandler {
	return &CourseHandler{
		courseService: courseService,
		log:           logger.Component(log, "course_handler"),
	}
}

// List godoc
// GET /api/v1/admin/courses?semester_id=&subject_id=
func (h *CourseHandler) List(c *gin.Context) {
	var filter model.CourseFilter
	for key, dst := range map[string]**int{
		"semester_id": &filter.SemesterID,
		"subject_id":  &filter.SubjectID,
	} {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
				map[string]string{key: key + " must be a positive integer"})
			return
		}
		*dst = &v
	}

	courses, err := h.courseService.List(c.Request.Context(), filter)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"courses": courses})
}

// GetByID godoc
// GET /api/v1/admin/courses/:id
func (h *CourseHandler) GetByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	course, err := h.courseService.GetByID(c.Request.Context(), id)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"course": course})
}

// Create godoc
// POST /api/v1/admin/courses
func (h *CourseHandler) Create(c *gin.Context) {
	var req model.CreateCourseRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	course, err := h.courseService.Create(c.Request.Context(), &req)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"course": course})
}

// Delete godoc
// DELETE /api/v1/admin/courses/:id
func (h *CourseHandler) Delete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.courseService.Delete(c.Request.Context(), id); err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "course deleted successfully"})
}

// ─── Student queries ───

// Opened godoc
// GET /api/v1/student/courses/opened
func (h *CourseHandler) Opened(c *gin.Context) {
	courses, err := h.courseService.OpenedCourses(c.Request.Context())
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"courses": courses})
}

// Enrolled godoc
// GET /api/v1/student/courses/enrolled
func (h *CourseHandler) Enrolled(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	ids, err := h.courseService.EnrolledCourseIDs(c.Request.Context(), claims.UserID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"course_ids": ids})
}

// Studied godoc
// GET /api/v1/student/courses/studied?semester_id=
func (h *CourseHandler) Studied(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	semesterID, err := strconv.Atoi(c.Query("semester_id"))
	if err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"semester_id": "semester_id is required"})
		return
	}

	courses, err := h.courseService.StudiedCourses(c.Request.Context(), claims.UserID, semesterID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"courses": courses})
}
