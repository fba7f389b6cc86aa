package handler

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"storefront/internal/service"

	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

var reasonMessages = map[string]string{
	service.ReasonPaymentNotFound: "We could not find your payment. If you were charged, it will be applied shortly.",
	service.ReasonInvalidPayment:  "The payment does not match this order.",
	service.ReasonPaymentFailed:   "The payment did not go through.",
}

type successPage struct {
	OrderID   string
	Total     string
	Currency  string
	Reference string
}

type orderStatusPage struct {
	OrderID string
	Paid    bool
	Message string
}

// PaymentHandler serves the pages customers land on when a provider
// redirects them back to the store.
type PaymentHandler struct {
	checkoutService service.CheckoutService
	orderService    service.OrderService
	currency        string
	logger          *slog.Logger
}

func NewPaymentHandler(
	checkoutService service.CheckoutService,
	orderService service.OrderService,
	currency string,
	logger *slog.Logger,
) *PaymentHandler {
	return &PaymentHandler{
		checkoutService: checkoutService,
		orderService:    orderService,
		currency:        currency,
		logger:          logger,
	}
}

func (h *PaymentHandler) StripeSuccess(c echo.Context) error {
	ctx := c.Request().Context()
	orderID := c.Param("id")

	out, err := h.checkoutService.ConfirmStripeRedirect(ctx, orderID, c.QueryParam("payment_intent"))
	return h.finish(c, orderID, out, err)
}

func (h *PaymentHandler) PaypalSuccess(c echo.Context) error {
	ctx := c.Request().Context()
	orderID := c.Param("id")

	// PayPal appends its order id as "token".
	out, err := h.checkoutService.ConfirmPaypalRedirect(ctx, orderID, c.QueryParam("token"))
	return h.finish(c, orderID, out, err)
}

func (h *PaymentHandler) finish(c echo.Context, orderID string, out *service.Outcome, err error) error {
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		reason := service.RedirectReason(err)
		if reason == "" {
			return err
		}

		q := url.Values{"error": {reason}}
		if status := service.RejectedStatus(err); reason == service.ReasonPaymentFailed && status != "" {
			q.Set("status", status)
		}
		return c.Redirect(http.StatusSeeOther, "/order/"+url.PathEscape(orderID)+"?"+q.Encode())
	}

	if out.Degraded() {
		h.logger.Warn("order paid with failed side effects", "order_id", orderID, "error", out.SideEffectErr)
	}

	page := successPage{
		OrderID:  out.Order.ID,
		Total:    out.Order.TotalPrice.StringFixed(2),
		Currency: h.currency,
	}
	if out.Order.PaymentResult != nil {
		page.Reference = out.Order.PaymentResult.ProviderPaymentID
	}
	return render(c, "payment_success.html", page)
}

// OrderStatus is the landing page of failed redirects.
func (h *PaymentHandler) OrderStatus(c echo.Context) error {
	ctx := c.Request().Context()
	orderID := c.Param("id")

	paid, err := h.orderService.IsPaid(ctx, orderID)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return err
	}

	page := orderStatusPage{OrderID: orderID, Paid: paid}
	if !paid {
		page.Message = reasonMessages[c.QueryParam("error")]
		if status := c.QueryParam("status"); page.Message != "" && status != "" {
			page.Message += " (status: " + status + ")"
		}
	}
	return render(c, "order_status.html", page)
}

func render(c echo.Context, name string, data any) error {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	return c.HTML(http.StatusOK, buf.String())
}
