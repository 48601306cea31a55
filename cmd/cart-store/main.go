package main

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fjod/go_cart/cart-store/internal/config"
)

func main() {
	// money goes over the wire as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := viper.New()
	config.SetDefaults(v)

	var configFile string
	cmd := &cobra.Command{
		Use:           "cart-store",
		Short:         "Per-user shopping cart service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFile == "" {
				return nil
			}
			v.SetConfigFile(configFile)
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("read config %s: %w", configFile, err)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "optional config file (yaml, json or toml)")
	cmd.PersistentFlags().String("log-level", "info", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().String("env", "prod", "environment; dev switches to console logging")
	_ = v.BindPFlag("log_level", cmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("env", cmd.PersistentFlags().Lookup("env"))

	cmd.AddCommand(newServeCommand(v))
	return cmd
}
