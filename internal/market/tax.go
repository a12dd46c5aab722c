package market

import (
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/karvek/albion-scalper/internal/config"
)

// TaxModel maps a sell location plus the premium flag to an effective
// sales tax rate. Locations are classified once at construction; the
// model is immutable afterwards and safe for concurrent scans.
type TaxModel struct {
	royal       map[string]struct{}
	artifact    map[string]struct{}
	blackMarket string

	royalRate       decimal.Decimal
	artifactRate    decimal.Decimal
	blackMarketRate decimal.Decimal
	premiumModifier decimal.Decimal

	logger *logrus.Entry
}

// NewTaxModel builds the model from validated configuration.
func NewTaxModel(locations config.LocationsConfig, taxes config.TaxConfig, logger *logrus.Logger) *TaxModel {
	m := &TaxModel{
		royal:           make(map[string]struct{}, len(locations.RoyalCities)),
		artifact:        make(map[string]struct{}, len(locations.ArtifactCities)),
		blackMarket:     locations.BlackMarket,
		royalRate:       decimal.NewFromFloat(taxes.RoyalRate),
		artifactRate:    decimal.NewFromFloat(taxes.ArtifactRate),
		blackMarketRate: decimal.NewFromFloat(taxes.BlackMarketRate),
		premiumModifier: decimal.NewFromFloat(taxes.PremiumModifier),
		logger:          logger.WithField("component", "tax_model"),
	}
	for _, city := range locations.RoyalCities {
		m.royal[city] = struct{}{}
	}
	for _, city := range locations.ArtifactCities {
		m.artifact[city] = struct{}{}
	}
	return m
}

// Rate returns the effective tax rate for selling at location. Unknown
// locations are logged and fall back to the royal rate. Premium status
// multiplies the base rate by the configured modifier.
func (m *TaxModel) Rate(location string, premium bool) decimal.Decimal {
	var base decimal.Decimal
	switch {
	case location == m.blackMarket:
		base = m.blackMarketRate
	case m.isRoyal(location):
		base = m.royalRate
	case m.isArtifact(location):
		base = m.artifactRate
	default:
		m.logger.WithField("location", location).
			Warn("Unknown location for tax rate, defaulting to royal rate")
		base = m.royalRate
	}

	if premium {
		return base.Mul(m.premiumModifier)
	}
	return base
}

// BlackMarket returns the configured black-market location name.
func (m *TaxModel) BlackMarket() string {
	return m.blackMarket
}

// IsBlackMarket reports whether location is the sell-only black market.
func (m *TaxModel) IsBlackMarket(location string) bool {
	return location == m.blackMarket
}

func (m *TaxModel) isRoyal(location string) bool {
	_, ok := m.royal[location]
	return ok
}

func (m *TaxModel) isArtifact(location string) bool {
	_, ok := m.artifact[location]
	return ok
}
