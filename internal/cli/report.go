package cli

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/karvek/albion-scalper/internal/models"
)

// writeReport prints the opportunity list the way traders read it:
// ranked, with silver amounts grouped by thousands.
func writeReport(w io.Writer, opportunities []models.Opportunity, limit int) {
	if len(opportunities) == 0 {
		fmt.Fprintln(w, "\nNo profitable opportunities found matching the criteria.")
		return
	}

	shown := opportunities
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}

	p := message.NewPrinter(language.English)
	fmt.Fprintf(w, "\n--- Top %d Opportunities (after tax and volume filter) ---\n", len(shown))

	for i, opp := range shown {
		name := opp.ItemName
		if name == "" {
			name = opp.ItemID
		}

		volume := "N/A"
		if opp.AvgDailyVolume != nil {
			volume = p.Sprintf("%d", *opp.AvgDailyVolume)
		}

		fmt.Fprintf(w, "%d. %s (Q%d)\n", i+1, name, opp.Quality)
		fmt.Fprintf(w, "   Buy : %-15s @ %12s silver\n", opp.BuyLocation, p.Sprintf("%d", opp.BuyPrice))
		fmt.Fprintf(w, "   Sell: %-15s @ %12s silver\n", opp.SellLocation, p.Sprintf("%d", opp.SellPrice))
		fmt.Fprintf(w, "   Tax : %-15s @ %12s silver (estimated)\n", "", p.Sprintf("%d", opp.TaxAmount))
		fmt.Fprintf(w, "   Vol : avg daily at sell location: %s\n", volume)
		fmt.Fprintf(w, "   ---> Net Profit: %s silver (%s%%)\n", p.Sprintf("%d", opp.NetProfit), opp.MarginPercent.StringFixed(2))
		fmt.Fprintln(w, strings.Repeat("-", 50))
	}

	if len(opportunities) > len(shown) {
		fmt.Fprintf(w, "... and %d more.\n", len(opportunities)-len(shown))
	}
}
