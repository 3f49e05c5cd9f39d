package plan

import (
	"errors"
	"strings"
)

var (
	ErrUnknownPlan    = errors.New("unknown plan")
	ErrAmountMismatch = errors.New("amount does not match plan price")
)

// Tolerance absorbs float-to-cents rounding from upstream notifiers. Anything
// beyond one cent is treated as tampering between display price and payload.
const amountToleranceCents = int64(1)

type Tier struct {
	Code           string
	PriceCents     int64
	ToleranceCents int64
	RedirectPath   string
}

const defaultConfirmedPath = "/plans/confirmed"

type Catalog struct {
	tiers map[string]Tier
}

// NewCatalog returns the static plan catalog. The catalog is the single
// source of truth for plan codes, prices, and post-confirmation landing pages.
func NewCatalog() *Catalog {
	tiers := []Tier{
		{Code: "basic", PriceCents: 4700, ToleranceCents: amountToleranceCents, RedirectPath: "/plans/confirmed/basic"},
		{Code: "premium", PriceCents: 9700, ToleranceCents: amountToleranceCents, RedirectPath: "/plans/confirmed/premium"},
		{Code: "enterprise", PriceCents: 19700, ToleranceCents: amountToleranceCents},
	}

	m := make(map[string]Tier, len(tiers))
	for _, tier := range tiers {
		m[tier.Code] = tier
	}
	return &Catalog{tiers: m}
}

// Resolve maps a plan code and submitted amount to a catalog tier. The amount
// must match the catalog price within the tier's tolerance.
func (c *Catalog) Resolve(code string, amountCents int64) (Tier, error) {
	tier, ok := c.tiers[strings.ToLower(strings.TrimSpace(code))]
	if !ok {
		return Tier{}, ErrUnknownPlan
	}

	diff := amountCents - tier.PriceCents
	if diff < 0 {
		diff = -diff
	}
	if diff > tier.ToleranceCents {
		return Tier{}, ErrAmountMismatch
	}

	return tier, nil
}

// RedirectURL derives the post-confirmation target for a tier. Tiers without
// a dedicated landing page fall back to the generic confirmation page. Applied
// and replayed confirmations resolve to the same URL.
func (c *Catalog) RedirectURL(baseURL string, tier Tier) string {
	path := tier.RedirectPath
	if path == "" {
		path = defaultConfirmedPath
	}
	return strings.TrimRight(baseURL, "/") + path
}

// Tiers lists the catalog entries, for diagnostics and tests.
func (c *Catalog) Tiers() []Tier {
	items := make([]Tier, 0, len(c.tiers))
	for _, tier := range c.tiers {
		items = append(items, tier)
	}
	return items
}
