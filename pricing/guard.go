package pricing

// DefaultMaxDropPercent is the drop beyond which a scraped price is held
// back for manual review.
const DefaultMaxDropPercent = 30.0

// Decision is the guard's verdict on a freshly scraped price. Price is the
// value safe to publish; Provisional is meaningful only when Quarantined.
type Decision struct {
	Quarantined bool
	Price       float64
	Provisional float64
	DropPercent float64
}

// AnomalyGuard compares each new price against the last trusted one.
// Scrapers break silently in ways that look like legitimate price drops
// (wrong node, promotional banner instead of the price); an unreviewed
// near-zero price is worse than a stale-but-correct one, so implausible
// drops are quarantined instead of published.
type AnomalyGuard struct {
	maxDropPercent float64
}

func NewAnomalyGuard(maxDropPercent float64) *AnomalyGuard {
	if maxDropPercent <= 0 {
		maxDropPercent = DefaultMaxDropPercent
	}
	return &AnomalyGuard{maxDropPercent: maxDropPercent}
}

// Evaluate is pure: the same (old, new) pair always yields the same
// decision. A missing or zero old price is not comparable and the new
// price is adopted as-is. Increases are not guarded.
func (g *AnomalyGuard) Evaluate(oldPrice, newPrice float64) Decision {
	if oldPrice <= 0 {
		return Decision{Price: newPrice}
	}

	drop := (oldPrice - newPrice) / oldPrice * 100
	if drop > g.maxDropPercent {
		return Decision{
			Quarantined: true,
			Price:       oldPrice,
			Provisional: newPrice,
			DropPercent: drop,
		}
	}
	return Decision{Price: newPrice, DropPercent: drop}
}
