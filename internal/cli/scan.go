package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/karvek/albion-scalper/internal/models"
)

type scanFlags struct {
	items      []string
	categories []string
	locations  []string
	quality    int
	allTiers   bool
	minMargin  float64
	premium    bool
	minVolume  int64
	noHistory  bool
	rankBy     string
	limit      int
	asJSON     bool
}

func newScanCmd() *cobra.Command {
	flags := &scanFlags{}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the market for arbitrage opportunities",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScan(cmd, flags)
		},
	}

	cmd.Flags().StringSliceVar(&flags.items, "items", nil, "item IDs to analyze (e.g. T4_BAG,T5_BAG)")
	cmd.Flags().StringSliceVar(&flags.categories, "categories", nil, "configured item categories to analyze")
	cmd.Flags().StringSliceVar(&flags.locations, "locations", nil, "locations to analyze; defaults to all configured cities")
	cmd.Flags().IntVar(&flags.quality, "quality", 0, "item quality tier (1-5); defaults to configuration")
	cmd.Flags().BoolVar(&flags.allTiers, "all-tiers", false, "analyze every quality tier with price data")
	cmd.Flags().Float64Var(&flags.minMargin, "min-margin", 0, "minimum profit margin percent; defaults to configuration")
	cmd.Flags().BoolVar(&flags.premium, "premium", false, "assume premium status for the tax rate")
	cmd.Flags().Int64Var(&flags.minVolume, "min-volume", 0, "minimum average daily volume at the sell location; 0 disables the filter")
	cmd.Flags().BoolVar(&flags.noHistory, "no-history", false, "skip history fetching and volume filtering entirely")
	cmd.Flags().StringVar(&flags.rankBy, "rank-by", string(models.RankByNetProfit), "ranking: net_profit or opportunity_score")
	cmd.Flags().IntVar(&flags.limit, "limit", 0, "maximum results to display; defaults to configuration")
	cmd.Flags().BoolVar(&flags.asJSON, "json", false, "emit results as JSON instead of the report")
	return cmd
}

func runScan(cmd *cobra.Command, flags *scanFlags) error {
	ctx := cmd.Context()

	app, err := buildApp(ctx, logLevelFlag, true)
	if err != nil {
		return err
	}

	analysis := app.cfg.Analysis

	quality := models.SingleTier(analysis.DefaultQuality)
	switch {
	case flags.allTiers:
		quality = models.AllTiers()
	case cmd.Flags().Changed("quality"):
		quality = models.SingleTier(flags.quality)
	}

	minMargin := analysis.MinMarginPercent
	if cmd.Flags().Changed("min-margin") {
		minMargin = flags.minMargin
	}

	minVolume := analysis.MinAvgDailyVolume
	if cmd.Flags().Changed("min-volume") {
		minVolume = flags.minVolume
	}
	if flags.noHistory {
		minVolume = 0
	}

	premium := analysis.UsePremiumTaxRate
	if cmd.Flags().Changed("premium") {
		premium = flags.premium
	}

	locations := flags.locations
	if len(locations) == 0 {
		locations = app.cfg.Locations.AllCities
	}

	limit := analysis.ResultLimit
	if cmd.Flags().Changed("limit") {
		limit = flags.limit
	}

	req := models.ScanRequest{
		Items:              app.resolveItems(flags.items, flags.categories),
		Locations:          locations,
		Quality:            quality,
		MinMarginPercent:   minMargin,
		UsePremiumTax:      premium,
		MinVolumeThreshold: minVolume,
		RankBy:             models.RankBy(flags.rankBy),
	}

	// An explicit volume filter always fetches history, regardless of
	// the configured master switch.
	fetchHistory := analysis.FetchHistory || cmd.Flags().Changed("min-volume")
	if flags.noHistory {
		fetchHistory = false
	}

	opportunities, err := app.newScanner(fetchHistory).Scan(ctx, req)
	if err != nil {
		return err
	}

	if flags.asJSON {
		shown := opportunities
		if limit > 0 && len(shown) > limit {
			shown = shown[:limit]
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(shown)
	}

	writeReport(cmd.OutOrStdout(), opportunities, limit)
	return nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := buildApp(cmd.Context(), logLevelFlag, true)
			if err != nil {
				return err
			}
			return serveAPI(cmd.Context(), app)
		},
	}
}

func newCacheCmd() *cobra.Command {
	cache := &cobra.Command{
		Use:   "cache",
		Short: "Manage the API response cache",
	}

	cache.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove all cached API responses",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := buildApp(cmd.Context(), logLevelFlag, false)
			if err != nil {
				return err
			}
			if app.store == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Caching is disabled.")
				return nil
			}
			removed := app.store.Clear(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cache entries.\n", removed)
			return nil
		},
	})
	return cache
}
