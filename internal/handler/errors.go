package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dkhp/registration-backend/internal/enrollment"
	"github.com/dkhp/registration-backend/internal/response"
	"github.com/dkhp/registration-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// failFromError writes the envelope for a service error. Unknown errors are
// logged and reported as internal errors.
func failFromError(c *gin.Context, log zerolog.Logger, err error) {
	var notOpened *service.NotOpenedError

	switch {
	// Registration gate
	case errors.As(err, &notOpened):
		response.FailWithMessage(c, http.StatusForbidden, response.ErrPeriodNotOpenedYet,
			fmt.Sprintf("%s It opens at %s.", response.GetMessage(response.ErrPeriodNotOpenedYet),
				notOpened.OpensAt.Local().Format(time.DateTime)))
	case errors.Is(err, service.ErrPeriodNotOpenedYet):
		response.Fail(c, http.StatusForbidden, response.ErrPeriodNotOpenedYet)
	case errors.Is(err, service.ErrNoOpenPeriod):
		response.Fail(c, http.StatusForbidden, response.ErrNoOpenPeriod)
	case errors.Is(err, service.ErrBatchInProgress):
		response.Fail(c, http.StatusConflict, response.ErrBatchInProgress)

	// Batch shape
	case errors.Is(err, enrollment.ErrCourseNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrCourseNotFound)
	case errors.Is(err, enrollment.ErrDuplicateCourse):
		response.Fail(c, http.StatusBadRequest, response.ErrDuplicateCourse)
	case errors.Is(err, enrollment.ErrEmptyBatch):
		response.FailWithMessage(c, http.StatusBadRequest, response.ErrInvalidPayload, "course_ids must not be empty.")
	case errors.Is(err, enrollment.ErrCourseNotEnrolled):
		response.Fail(c, http.StatusBadRequest, response.ErrCourseNotEnrolled)
	case errors.Is(err, enrollment.ErrMissingResult):
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Registration data integrity error")
		response.Fail(c, http.StatusInternalServerError, response.ErrDataIntegrity)

	// Catalog administration
	case errors.Is(err, service.ErrSemesterNotFound),
		errors.Is(err, service.ErrSubjectNotFound),
		errors.Is(err, service.ErrPeriodNotFound):
		response.FailWithMessage(c, http.StatusNotFound, response.ErrNotFound, capitalize(err.Error())+".")
	case errors.Is(err, service.ErrCourseNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrCourseNotFound)
	case errors.Is(err, service.ErrAlreadyExists):
		response.Fail(c, http.StatusConflict, response.ErrConflict)
	case errors.Is(err, service.ErrInUse):
		response.Fail(c, http.StatusConflict, response.ErrDependencyExists)
	case errors.Is(err, service.ErrCourseHasPractice):
		response.FailWithMessage(c, http.StatusConflict, response.ErrDependencyExists,
			"The course still has practice courses linked to it. Remove them first.")
	case errors.Is(err, service.ErrInvalidSchedule):
		response.FailWithMessage(c, http.StatusBadRequest, response.ErrInvalidSchedule, capitalize(err.Error())+".")
	case errors.Is(err, service.ErrInvalidMainCourse):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidMainCourse)
	case errors.Is(err, service.ErrInvalidPrerequisite),
		errors.Is(err, service.ErrInvalidSemesterQuery):
		response.FailWithMessage(c, http.StatusBadRequest, response.ErrValidation, capitalize(err.Error())+".")
	case errors.Is(err, service.ErrPeriodOverlap):
		response.Fail(c, http.StatusConflict, response.ErrPeriodOverlap)
	case errors.Is(err, service.ErrInvalidPeriodWindow),
		errors.Is(err, service.ErrPeriodStartsInPast),
		errors.Is(err, service.ErrPeriodAlreadyClosed):
		response.FailWithMessage(c, http.StatusBadRequest, response.ErrInvalidSchedule, capitalize(err.Error())+".")

	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
