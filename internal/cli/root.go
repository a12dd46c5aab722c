package cli

import (
	"github.com/spf13/cobra"
)

var logLevelFlag string

// NewRootCmd assembles the scalper command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "scalper",
		Short: "Albion Online market arbitrage scanner",
		Long: `scalper finds buy-low/sell-high opportunities across marketplace
locations, accounting for sales tax, premium status and traded volume.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"log level (debug, info, warn, error); overrides configuration")

	root.AddCommand(newScanCmd())
	root.AddCommand(newCategoriesCmd())
	root.AddCommand(newCacheCmd())
	root.AddCommand(newServeCmd())
	return root
}
