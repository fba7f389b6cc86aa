package cli

import (
	"encoding/json"
	"fmt"
	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/spf13/cobra"
)

type ReconcileOptions struct {
	*RootOptions
	OrderID   string
	Provider  string
	Reference string
}

// NewReconcileCommand creates the reconcile command, the operator's tool for
// orders flagged for manual review.
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReconcileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Verify a payment reference with its provider and mark the order paid",
		Long: `Verify a payment reference with its provider and mark the order paid.

The reference goes through the same checks as webhooks and redirects: the
provider must report success, link the payment to the order, and report the
order's exact total. Reconciling an already paid order changes nothing.

Example:
  storefront reconcile --order 5b0c... --provider Stripe --ref pi_3N...
  storefront reconcile --order 5b0c... --provider CashOnDelivery`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return reconcile(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.OrderID, "order", "", "order id (required)")
	cmd.Flags().StringVar(&opts.Provider, "provider", "", "Stripe, PayPal, Braintree or CashOnDelivery (required)")
	cmd.Flags().StringVar(&opts.Reference, "ref", "", "provider payment reference")
	_ = cmd.MarkFlagRequired("order")
	_ = cmd.MarkFlagRequired("provider")

	return cmd
}

func reconcile(opts *ReconcileOptions, cmd *cobra.Command) error {
	method := model.PaymentMethod(opts.Provider)
	if !method.Valid() {
		return fmt.Errorf("unknown provider %q", opts.Provider)
	}
	if method != model.PaymentMethodCashOnDelivery && opts.Reference == "" {
		return fmt.Errorf("--ref is required for %s", method)
	}

	a, err := newApp(opts.Config, opts.Logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	var out *service.Outcome
	if method == model.PaymentMethodCashOnDelivery {
		out, err = a.reconciler.MarkCashCollected(ctx, opts.OrderID)
	} else {
		out, err = a.reconciler.Confirm(ctx, service.Confirmation{
			OrderID:   opts.OrderID,
			Method:    method,
			Reference: opts.Reference,
			Channel:   service.ChannelManual,
		})
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"orderId":     out.Order.ID,
		"applied":     out.Applied,
		"alreadyPaid": out.AlreadyPaid(),
		"degraded":    out.Degraded(),
		"paidAt":      out.Order.PaidAt,
	})
}
