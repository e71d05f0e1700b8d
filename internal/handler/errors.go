package handler

import (
	"content-storefront/internal/model"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// statusFor maps domain errors onto HTTP statuses. Anything unknown is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidInput),
		errors.Is(err, model.ErrInvalidScope),
		errors.Is(err, model.ErrInvalidLinkType),
		errors.Is(err, model.ErrScopeRefMismatch),
		errors.Is(err, model.ErrGlobalGrant),
		errors.Is(err, model.ErrInvalidMaxUses),
		errors.Is(err, model.ErrNoBaseMembership):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrLinkNotFound),
		errors.Is(err, model.ErrProductNotFound),
		errors.Is(err, model.ErrModelNotFound),
		errors.Is(err, model.ErrPurchaseNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrAlreadyPaid),
		errors.Is(err, model.ErrProductUnavailable),
		errors.Is(err, model.ErrPurchaseNotPending):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func httpError(err error) *echo.HTTPError {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		return echo.NewHTTPError(status, "internal error").SetInternal(err)
	}
	return echo.NewHTTPError(status, err.Error()).SetInternal(err)
}
