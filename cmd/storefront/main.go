package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/storefront"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pricing"
)

// settings configures the shopper CLI from the environment.
type settings struct {
	APIURL   string `envconfig:"STOREFRONT_API_URL" default:"http://localhost:8080"`
	Token    string `envconfig:"STOREFRONT_TOKEN"`
	CartPath string `envconfig:"STOREFRONT_CART_PATH"`
	LogLevel string `envconfig:"STOREFRONT_LOG_LEVEL" default:"warn"`
	Pricing  config.PricingConfig
}

// session bundles what every command needs.
type session struct {
	logg    *logger.Logger
	client  *storefront.Client
	cart    *cart.Store
	rules   pricing.Rules
	// keyPath holds the idempotency key of a checkout whose outcome is unknown.
	keyPath string
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var s session
	root := &cobra.Command{
		Use:           "storefront",
		Short:         "Shop the storefront from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			opened, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			s = *opened
			return nil
		},
	}
	root.AddCommand(
		newCartCmd(&s),
		newCheckoutCmd(&s),
		newFavoriteCmd(&s),
	)
	return root
}

func openSession(ctx context.Context) (*session, error) {
	var cfg settings
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing settings: %w", err)
	}
	rules, err := cfg.Pricing.Rules()
	if err != nil {
		return nil, err
	}

	logg := logger.New(logger.Options{
		ServiceName: "storefront-cli",
		Level:       logger.ParseLevel(cfg.LogLevel),
		Output:      os.Stderr,
	})

	client, err := storefront.NewClient(cfg.APIURL, storefront.WithToken(cfg.Token))
	if err != nil {
		return nil, err
	}

	path := cfg.CartPath
	if path == "" {
		if path, err = cart.DefaultPath(); err != nil {
			return nil, err
		}
	}

	return &session{
		logg:    logg,
		client:  client,
		cart:    cart.Open(ctx, cart.NewFileStorage(path), logg),
		rules:   rules,
		keyPath: path + ".checkout-key",
	}, nil
}
