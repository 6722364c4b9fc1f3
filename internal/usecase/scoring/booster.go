package scoring

import (
	"strings"
	"time"

	"github.com/kailas-cloud/shelf/internal/domain/product"
)

// Booster adjusts a base relevance score. Implementations may only raise it;
// Engine clamps anything lower back to base.
type Booster interface {
	Boost(it *product.Item, base float64) float64
}

// PromoBooster multiplies the score of promoted or discounted products.
type PromoBooster struct {
	Factor float64
}

// Boost implements Booster.
func (b PromoBooster) Boost(it *product.Item, base float64) float64 {
	if b.Factor <= 1 {
		return base
	}
	promoted := strings.TrimSpace(it.Promos) != ""
	discounted := it.DiscountPrice > 0 && it.DiscountPrice < it.SellingPrice
	if !promoted && !discounted {
		return base
	}
	return base * b.Factor
}

// timeLayouts are the accepted catalog timestamp formats.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// FreshnessBooster adds a bonus to recently updated products.
// The bonus decays linearly to zero over Window.
type FreshnessBooster struct {
	Bonus  float64
	Window time.Duration
	Now    func() time.Time
}

// Boost implements Booster.
func (b FreshnessBooster) Boost(it *product.Item, base float64) float64 {
	if b.Bonus <= 0 || b.Window <= 0 {
		return base
	}
	updated, ok := parseTime(it.UpdatedAt)
	if !ok {
		return base
	}
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	age := now().Sub(updated)
	if age < 0 {
		age = 0
	}
	if age >= b.Window {
		return base
	}
	return base + b.Bonus*(1-float64(age)/float64(b.Window))
}

// Chain applies boosters in order, each on the previous result.
type Chain []Booster

// Boost implements Booster.
func (c Chain) Boost(it *product.Item, base float64) float64 {
	score := base
	for _, b := range c {
		score = b.Boost(it, score)
	}
	return score
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
