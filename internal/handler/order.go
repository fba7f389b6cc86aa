package handler

import (
	"net/http"
	"storefront/internal/dto"
	"storefront/internal/middleware"
	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	orderService    service.OrderService
	checkoutService service.CheckoutService
	reconciler      service.ReconcileService
}

func NewOrderHandler(
	orderService service.OrderService,
	checkoutService service.CheckoutService,
	reconciler service.ReconcileService,
) *OrderHandler {
	return &OrderHandler{
		orderService:    orderService,
		checkoutService: checkoutService,
		reconciler:      reconciler,
	}
}

func outcomeResponse(out *service.Outcome) *dto.PaymentOutcome {
	return &dto.PaymentOutcome{
		OrderID:     out.Order.ID,
		IsPaid:      out.Order.IsPaid,
		AlreadyPaid: out.AlreadyPaid(),
		Degraded:    out.Degraded(),
	}
}

func (h *OrderHandler) PlaceOrder(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.PlaceOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	order, err := h.orderService.PlaceOrder(ctx, service.PlaceOrderInput{
		UserID:          middleware.UserID(c),
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   model.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		return apiError(err)
	}

	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()

	order, err := h.orderService.GetOrder(ctx, c.Param("id"), middleware.UserID(c), middleware.IsAdmin(c))
	if err != nil {
		return apiError(err)
	}

	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) StartStripe(c echo.Context) error {
	ctx := c.Request().Context()

	resp, err := h.checkoutService.StartStripeCheckout(ctx, c.Param("id"), middleware.UserID(c))
	if err != nil {
		return apiError(err)
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *OrderHandler) StartPaypal(c echo.Context) error {
	ctx := c.Request().Context()

	resp, err := h.checkoutService.StartPaypalCheckout(ctx, c.Param("id"), middleware.UserID(c))
	if err != nil {
		return apiError(err)
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *OrderHandler) PayBraintree(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.BraintreeCheckoutRequest
	if err := c.Bind(&req); err != nil || req.Nonce == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "paymentMethodNonce is required")
	}

	out, err := h.checkoutService.PayWithBraintree(ctx, c.Param("id"), middleware.UserID(c), req.Nonce)
	if err != nil {
		return apiError(err)
	}

	return c.JSON(http.StatusOK, outcomeResponse(out))
}

func (h *OrderHandler) MarkCashCollected(c echo.Context) error {
	ctx := c.Request().Context()

	out, err := h.reconciler.MarkCashCollected(ctx, c.Param("id"))
	if err != nil {
		return apiError(err)
	}

	return c.JSON(http.StatusOK, outcomeResponse(out))
}

// Reconcile re-verifies a payment reference on behalf of an admin.
func (h *OrderHandler) Reconcile(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.ReconcileRequest
	if err := c.Bind(&req); err != nil || req.Reference == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "provider and reference are required")
	}
	method := model.PaymentMethod(req.Provider)
	if !method.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown provider")
	}

	out, err := h.reconciler.Confirm(ctx, service.Confirmation{
		OrderID:   c.Param("id"),
		Method:    method,
		Reference: req.Reference,
		Channel:   service.ChannelManual,
	})
	if err != nil {
		return apiError(err)
	}

	return c.JSON(http.StatusOK, outcomeResponse(out))
}
