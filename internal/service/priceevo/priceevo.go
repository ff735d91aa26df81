// Package priceevo compares the lines of two consecutive purchases of
// the same list and reports how each product's price moved. Lines are
// matched by product name; a product bought for the first time has no
// previous price and no trend.
package priceevo

// Trend classifies a price movement between two purchases.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// deadbandCents is the movement below which a price change counts as
// stable. One cent absorbs rounding noise from unit conversions.
const deadbandCents int64 = 1

// Line is the subset of a purchase line the comparison needs.
type Line struct {
	Name       string
	PriceCents int64
}

// Evolution describes the movement of one product's price relative to
// the previous purchase. PrevPriceCents, DiffCents, DiffPercent and
// Trend are nil when the product did not appear in the previous
// purchase.
type Evolution struct {
	Name           string   `json:"name"`
	PriceCents     int64    `json:"price_cents"`
	PrevPriceCents *int64   `json:"prev_price_cents,omitempty"`
	DiffCents      *int64   `json:"diff_cents,omitempty"`
	DiffPercent    *float64 `json:"diff_percent,omitempty"`
	Trend          *Trend   `json:"trend,omitempty"`
}

// Compare produces one Evolution per current line, in the order given.
// Previous lines are indexed by name; when a name repeats in the
// previous purchase the last occurrence wins.
func Compare(current, previous []Line) []Evolution {
	prevByName := make(map[string]int64, len(previous))
	for _, l := range previous {
		prevByName[l.Name] = l.PriceCents
	}

	out := make([]Evolution, 0, len(current))
	for _, l := range current {
		ev := Evolution{Name: l.Name, PriceCents: l.PriceCents}
		if prev, ok := prevByName[l.Name]; ok {
			diff := l.PriceCents - prev
			trend := classify(diff)
			var pct float64
			if prev != 0 {
				// One decimal place, rounded half away from zero.
				pct = roundTenth(float64(diff) / float64(prev) * 100)
			}
			ev.PrevPriceCents = &prev
			ev.DiffCents = &diff
			ev.DiffPercent = &pct
			ev.Trend = &trend
		}
		out = append(out, ev)
	}
	return out
}

func classify(diffCents int64) Trend {
	switch {
	case diffCents > deadbandCents:
		return TrendUp
	case diffCents < -deadbandCents:
		return TrendDown
	default:
		return TrendStable
	}
}

func roundTenth(v float64) float64 {
	if v >= 0 {
		return float64(int64(v*10+0.5)) / 10
	}
	return float64(int64(v*10-0.5)) / 10
}
