package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/storefront"
	pkgcheckout "github.com/angelmondragon/storefront-backend/pkg/checkout"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func newCartCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{Use: "cart", Short: "Manage the local cart"}

	var (
		qty         int
		variantID   string
		variantName string
	)
	add := &cobra.Command{
		Use:   "add <slug>",
		Short: "Add a product by slug",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			product, err := s.client.ProductBySlug(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			price := product.Price
			changed := s.cart.AddItem(cmd.Context(), cart.Product{
				ID:            product.ID,
				Name:          product.Name,
				Slug:          product.Slug,
				SKU:           product.SKU,
				Image:         product.Image,
				Price:         &price,
				StockQuantity: product.StockQuantity,
				VariantID:     optional(variantID),
				VariantName:   optional(variantName),
			}, qty)
			if !changed {
				return fmt.Errorf("%s cannot be added (out of stock or invalid quantity)", product.Name)
			}
			return printCart(cmd.OutOrStdout(), s)
		},
	}
	add.Flags().IntVarP(&qty, "qty", "q", 1, "quantity to add")
	add.Flags().StringVar(&variantID, "variant", "", "variant id")
	add.Flags().StringVar(&variantName, "variant-name", "", "variant display name")

	var removeVariant string
	remove := &cobra.Command{
		Use:   "remove <product-id>",
		Short: "Remove a line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s.cart.RemoveItem(cmd.Context(), args[0], optional(removeVariant))
			return printCart(cmd.OutOrStdout(), s)
		},
	}
	remove.Flags().StringVar(&removeVariant, "variant", "", "variant id")

	var updateVariant string
	update := &cobra.Command{
		Use:   "update <product-id> <quantity>",
		Short: "Set a line's quantity; zero removes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			quantity, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("quantity must be a number: %w", err)
			}
			s.cart.UpdateQuantity(cmd.Context(), args[0], quantity, optional(updateVariant))
			return printCart(cmd.OutOrStdout(), s)
		},
	}
	update.Flags().StringVar(&updateVariant, "variant", "", "variant id")

	list := &cobra.Command{
		Use:   "list",
		Short: "Show the cart and its totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printCart(cmd.OutOrStdout(), s)
		},
	}

	clean := &cobra.Command{
		Use:   "clean",
		Short: "Drop lines that are no longer purchasable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			removed := s.cart.CleanInvalidItems(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d invalid line(s)\n", removed)
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s.cart.ClearCart(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "cart cleared")
			return nil
		},
	}

	cmd.AddCommand(add, remove, update, list, clean, clearCmd)
	return cmd
}

func newCheckoutCmd(s *session) *cobra.Command {
	var (
		shipping pkgcheckout.ShippingInfo
		method   string
		retries  uint64
		backoff  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Place an order for the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pending, err := readPendingKey(s.keyPath)
			if err != nil {
				return err
			}
			flow, err := checkout.NewFlow(s.cart, s.client, s.rules, s.logg, checkout.WithPendingKey(pending))
			if err != nil {
				return err
			}
			if pending != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), "resuming the previous checkout attempt")
			}
			shipping.PaymentMethod = enums.PaymentMethod(method)

			policy := retry.WithMaxRetries(retries, retry.WithCappedDuration(5*time.Second, retry.NewExponential(backoff)))
			result, err := retry.DoValue(cmd.Context(), policy, func(ctx context.Context) (checkout.Result, error) {
				result, err := flow.Submit(ctx, shipping)
				if err != nil && pkgerrors.Classify(err) == pkgerrors.KindTransient {
					fmt.Fprintln(cmd.ErrOrStderr(), "temporary failure, retrying with the same order key")
					return result, retry.RetryableError(err)
				}
				return result, err
			})
			if saveErr := savePendingKey(s.keyPath, flow.PendingKey()); saveErr != nil {
				s.logg.Warn(s.logg.WithField(cmd.Context(), "error", saveErr.Error()), "checkout.pending_key_not_saved")
			}
			if err != nil {
				if flow.PendingKey() != "" {
					return fmt.Errorf("%w; run checkout again to resume the same order", err)
				}
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "order", result.OrderNumber)
			if result.State == checkout.StateRedirecting {
				fmt.Fprintln(out, "complete payment at:", result.CheckoutURL)
				return nil
			}
			fmt.Fprintln(out, "order confirmed; cart cleared")
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&shipping.Email, "email", "", "contact email")
	flags.StringVar(&shipping.FullName, "name", "", "recipient full name")
	flags.StringVar(&shipping.AddressLine1, "address", "", "street address")
	flags.StringVar(&shipping.AddressLine2, "address2", "", "apartment, suite, etc.")
	flags.StringVar(&shipping.City, "city", "", "city")
	flags.StringVar(&shipping.PostalCode, "postal-code", "", "postal code")
	flags.StringVar(&shipping.Phone, "phone", "", "phone number")
	flags.StringVar(&method, "payment", string(enums.PaymentMethodCash), "payment method: card or cash")
	flags.Uint64Var(&retries, "retries", 2, "resubmissions after a temporary failure")
	flags.DurationVar(&backoff, "backoff", 500*time.Millisecond, "initial wait before a resubmission")
	return cmd
}

func newFavoriteCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{Use: "favorite", Short: "Manage favorites"}

	toggle := &cobra.Command{
		Use:   "toggle <product-id>",
		Short: "Favorite or unfavorite a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			favorites := storefront.NewFavorites(s.client, s.logg)
			if err := favorites.Load(cmd.Context()); err != nil {
				return loginHint(err)
			}
			on, err := favorites.Toggle(cmd.Context(), args[0])
			if errors.Is(err, storefront.ErrDegraded) {
				return fmt.Errorf("favorites are temporarily limited; try again in a minute")
			}
			if err != nil {
				return loginHint(err)
			}
			if on {
				fmt.Fprintln(cmd.OutOrStdout(), "added to favorites")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "removed from favorites")
			}
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List favorited product ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			favorites := storefront.NewFavorites(s.client, s.logg)
			if err := favorites.Load(cmd.Context()); err != nil {
				return loginHint(err)
			}
			for _, id := range favorites.IDs() {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}

	cmd.AddCommand(toggle, list)
	return cmd
}

func loginHint(err error) error {
	if errors.Is(err, storefront.ErrLoginRequired) {
		return fmt.Errorf("%w: set STOREFRONT_TOKEN", err)
	}
	return err
}

func printCart(w io.Writer, s *session) error {
	items := s.cart.Items()
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "cart is empty")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRODUCT\tID\tVARIANT\tQTY\tLINE TOTAL")
	for _, item := range items {
		variant := "-"
		if item.Product.VariantName != nil {
			variant = *item.Product.VariantName
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			item.Product.Name, item.Product.ID, variant, item.Quantity, item.Subtotal().StringFixed(2))
	}
	totals := s.cart.Totals(s.rules).Rounded()
	fmt.Fprintf(tw, "\t\t\tsubtotal\t%s\n", totals.Subtotal.StringFixed(2))
	fmt.Fprintf(tw, "\t\t\tshipping\t%s\n", totals.Shipping.StringFixed(2))
	fmt.Fprintf(tw, "\t\t\ttax\t%s\n", totals.Tax.StringFixed(2))
	fmt.Fprintf(tw, "\t\t\ttotal\t%s\n", totals.Total.StringFixed(2))
	return tw.Flush()
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

// readPendingKey loads the key of an unresolved checkout, if any.
func readPendingKey(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading pending checkout: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

// savePendingKey stores key, or removes the file once no attempt is pending.
func savePendingKey(path, key string) error {
	if key == "" {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(key+"\n"), 0o600)
}
