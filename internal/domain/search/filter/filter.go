package filter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Filterable catalog fields.
const (
	KeyCategory = "category"
	KeyStore    = "store"
	KeyPrice    = "price"
)

// MaxConditions is the maximum number of conditions in one expression.
const MaxConditions = 16

// Expression is a conjunction of filter conditions. The zero value matches everything.
type Expression struct {
	must []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(must ...Condition) (Expression, error) {
	if len(must) > MaxConditions {
		return Expression{}, fmt.Errorf("too many filter conditions (max %d)", MaxConditions)
	}
	return Expression{must: must}, nil
}

// Must returns the conditions, all of which must hold.
func (e Expression) Must() []Condition { return e.must }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool { return len(e.must) == 0 }

// Canonical returns an order-independent encoding of the expression.
// Equal filter sets produce equal strings.
func (e Expression) Canonical() string {
	parts := make([]string, 0, len(e.must))
	for _, c := range e.must {
		parts = append(parts, c.canonical())
	}
	sort.Strings(parts)
	return strings.Join(parts, "&")
}

// Condition is a single filter clause: either a tag match or a numeric range.
type Condition struct {
	key       string
	match     string
	rangeExpr *Range
}

// NewMatch creates an exact tag match condition on category or store.
func NewMatch(key, match string) (Condition, error) {
	if key != KeyCategory && key != KeyStore {
		return Condition{}, fmt.Errorf("unsupported match field %q", key)
	}
	match = strings.TrimSpace(match)
	if match == "" {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	return Condition{key: key, match: match}, nil
}

// NewRange creates a numeric range condition on price.
func NewRange(key string, r Range) (Condition, error) {
	if key != KeyPrice {
		return Condition{}, fmt.Errorf("unsupported range field %q", key)
	}
	return Condition{key: key, rangeExpr: &r}, nil
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Match returns the exact match value.
func (c Condition) Match() string { return c.match }

// Range returns the numeric range expression.
func (c Condition) Range() *Range { return c.rangeExpr }

// IsMatch reports whether this is a match condition.
func (c Condition) IsMatch() bool { return c.match != "" }

// IsRange reports whether this is a range condition.
func (c Condition) IsRange() bool { return c.rangeExpr != nil }

func (c Condition) canonical() string {
	if c.IsRange() {
		return c.key + "=[" + bound(c.rangeExpr.min) + "," + bound(c.rangeExpr.max) + "]"
	}
	return c.key + "=" + strconv.Quote(c.match)
}

func bound(v *float64) string {
	if v == nil {
		return "*"
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

// Range is an inclusive numeric range. Either side may be open.
type Range struct {
	min *float64
	max *float64
}

// NewRangeFilter validates and creates a Range.
// At least one boundary is required and bounds must be non-negative with min <= max.
func NewRangeFilter(minVal, maxVal *float64) (Range, error) {
	if minVal == nil && maxVal == nil {
		return Range{}, fmt.Errorf("at least one range boundary is required")
	}
	if minVal != nil && *minVal < 0 {
		return Range{}, fmt.Errorf("min must be non-negative")
	}
	if maxVal != nil && *maxVal < 0 {
		return Range{}, fmt.Errorf("max must be non-negative")
	}
	if minVal != nil && maxVal != nil && *minVal > *maxVal {
		return Range{}, fmt.Errorf("min (%g) exceeds max (%g)", *minVal, *maxVal)
	}
	return Range{min: minVal, max: maxVal}, nil
}

// Min returns the lower inclusive bound.
func (r Range) Min() *float64 { return r.min }

// Max returns the upper inclusive bound.
func (r Range) Max() *float64 { return r.max }
