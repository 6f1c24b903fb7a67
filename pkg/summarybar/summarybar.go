// Package summarybar splits a fixed budget of grid slots among the failed,
// skipped and successful tests of a run, for drawing a stacked summary bar.
package summarybar

import (
	"math"

	"github.com/lirany1/cikit/pkg/models"
)

// DefaultSlots matches the 24 column grid the report pages are laid out on
const DefaultSlots = 24

// Distribution is the partition of a slot budget among outcome categories
type Distribution struct {
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
	Successful int `json:"successful"`
}

// Allocate partitions slots proportionally to the summary counts.
//
// Failed (failures plus errors) and skipped slots are rounded up so that any
// non-zero category gets at least one slot; successful takes the remainder and
// therefore absorbs every rounding error. Successful can become negative when
// the rounded categories overflow the budget, which is returned as is.
//
// A summary without tests, or a non-positive budget, yields the zero
// Distribution.
func Allocate(summary models.Summary, slots int) Distribution {
	if summary.Tests <= 0 || slots <= 0 {
		return Distribution{}
	}
	factor := float64(slots) / float64(summary.Tests)
	failed := int(math.Ceil(float64(summary.Errors+summary.Failures) * factor))
	skipped := int(math.Ceil(float64(summary.Skipped) * factor))
	return Distribution{
		Failed:     failed,
		Skipped:    skipped,
		Successful: slots - failed - skipped,
	}
}

// Total returns the number of slots the distribution covers
func (d Distribution) Total() int {
	return d.Failed + d.Skipped + d.Successful
}

// Empty reports whether the distribution allocates nothing
func (d Distribution) Empty() bool {
	return d == Distribution{}
}

// Clamped floors the successful share at zero. Widths derived from a
// clamped distribution may exceed the budget when rounding overflowed.
func (d Distribution) Clamped() Distribution {
	if d.Successful < 0 {
		d.Successful = 0
	}
	return d
}
