package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"storefront/internal/dto"
	"storefront/internal/service"

	"github.com/labstack/echo/v4"
)

const maxWebhookBody = 1 << 16

type WebhookHandler struct {
	webhookService service.WebhookService
	logger         *slog.Logger
}

func NewWebhookHandler(webhookService service.WebhookService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
		logger:         logger,
	}
}

func readBody(c echo.Context) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(c.Response(), c.Request().Body, maxWebhookBody))
}

func (h *WebhookHandler) Stripe(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := readBody(c)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	res, err := h.webhookService.HandleStripeWebhook(ctx, body, c.Request().Header.Get("Stripe-Signature"))
	return h.respond(c, "stripe", res, err)
}

func (h *WebhookHandler) Paypal(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := readBody(c)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	res, err := h.webhookService.HandlePaypalWebhook(ctx, c.Request().Header, body)
	return h.respond(c, "paypal", res, err)
}

func (h *WebhookHandler) Braintree(c echo.Context) error {
	ctx := c.Request().Context()

	res, err := h.webhookService.HandleBraintreeWebhook(ctx, c.FormValue("bt_signature"), c.FormValue("bt_payload"))
	return h.respond(c, "braintree", res, err)
}

// respond acknowledges everything except forged requests (400) and
// failures worth a redelivery (5xx).
func (h *WebhookHandler) respond(c echo.Context, provider string, res *service.WebhookResult, err error) error {
	if err == nil {
		return c.JSON(http.StatusOK, res)
	}

	switch {
	case errors.Is(err, service.ErrSignatureInvalid):
		h.logger.Warn("webhook signature rejected", "provider", provider, "error", err)
		return c.JSON(http.StatusBadRequest, &dto.ErrorResponse{Error: "invalid signature"})
	case errors.Is(err, service.ErrUnsupportedProvider):
		return c.JSON(http.StatusNotFound, &dto.ErrorResponse{Error: err.Error()})
	}

	h.logger.Error("webhook processing failed", "provider", provider, "error", err)
	return c.JSON(http.StatusInternalServerError, &dto.ErrorResponse{Error: "temporary failure"})
}
