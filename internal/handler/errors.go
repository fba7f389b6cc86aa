package handler

import (
	"errors"
	"net/http"
	"storefront/internal/dto"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/labstack/echo/v4"
)

// apiError maps service errors to HTTP errors for the JSON API. Unknown
// errors pass through and end up as 500s.
func apiError(err error) error {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	case errors.Is(err, service.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "forbidden")
	case errors.Is(err, service.ErrOrderAlreadyPaid),
		errors.Is(err, service.ErrPaymentMethodMismatch),
		errors.Is(err, repository.ErrInsufficientStock):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrInvalidPaymentMethod):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUnsupportedProvider):
		return echo.NewHTTPError(http.StatusNotImplemented, err.Error())
	case errors.Is(err, service.ErrVerifierUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}

	if reason := service.RedirectReason(err); reason != "" {
		return echo.NewHTTPError(http.StatusPaymentRequired, &dto.ErrorResponse{
			Error:  err.Error(),
			Reason: reason,
		})
	}
	return err
}
