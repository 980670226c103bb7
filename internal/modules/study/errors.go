package study

import (
	"errors"
	"net/http"

	"github.com/yungbote/studyflow-backend/internal/domain"
	"github.com/yungbote/studyflow-backend/internal/domain/study"
	"github.com/yungbote/studyflow-backend/internal/platform/apierr"
)

// MapError converts engine and repository errors into API errors. Business
// rejections keep their typed error as the cause.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return ae
	}

	var oow *study.OutOfWindowError
	var unknown *study.UnknownActivityError
	var pe *study.PersistenceError
	switch {
	case errors.As(err, &oow):
		return apierr.New(http.StatusForbidden, "out_of_window", err)
	case errors.As(err, &unknown):
		return apierr.New(http.StatusBadRequest, "unknown_activity", err)
	case errors.As(err, &pe):
		return apierr.New(http.StatusServiceUnavailable, "persistence_error", err)
	case errors.Is(err, domain.ErrNotFound):
		return apierr.New(http.StatusNotFound, "not_found", err)
	case errors.Is(err, domain.ErrDuplicateEmail):
		return apierr.New(http.StatusConflict, "duplicate_email", err)
	case errors.Is(err, domain.ErrInvalidArgument):
		return apierr.New(http.StatusBadRequest, "invalid_argument", err)
	case errors.Is(err, domain.ErrForbidden):
		return apierr.New(http.StatusForbidden, "forbidden", err)
	case errors.Is(err, domain.ErrUnauthorized):
		return apierr.New(http.StatusUnauthorized, "unauthorized", err)
	}
	return apierr.New(http.StatusInternalServerError, "internal_error", err)
}
