package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/lirany1/cikit/pkg/models"
)

// ShowDuration renders d with minute, second and millisecond units,
// e.g. "2m 3s 40ms". Minutes are not folded into hours.
func ShowDuration(d models.Duration) string {
	ms := d.Std().Milliseconds()
	if ms <= 0 {
		return "0ms"
	}
	minutes := ms / 60000
	ms %= 60000
	seconds := ms / 1000
	ms %= 1000

	parts := make([]string, 0, 3)
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if seconds > 0 {
		parts = append(parts, fmt.Sprintf("%ds", seconds))
	}
	if ms > 0 {
		parts = append(parts, fmt.Sprintf("%dms", ms))
	}
	return strings.Join(parts, " ")
}

// HumanDuration renders d with millisecond resolution using day, hour,
// minute, second and millisecond units, e.g. "1day 1h 1ms".
func HumanDuration(d time.Duration) string {
	ms := d.Milliseconds()
	if ms <= 0 {
		return "0ms"
	}
	units := []struct {
		size      int64
		name      string
		pluralize bool
	}{
		{24 * 60 * 60 * 1000, "day", true},
		{60 * 60 * 1000, "h", false},
		{60 * 1000, "m", false},
		{1000, "s", false},
		{1, "ms", false},
	}

	parts := make([]string, 0, len(units))
	for _, u := range units {
		n := ms / u.size
		ms %= u.size
		if n == 0 {
			continue
		}
		name := u.name
		if u.pluralize && n > 1 {
			name += "s"
		}
		parts = append(parts, fmt.Sprintf("%d%s", n, name))
	}
	return strings.Join(parts, " ")
}
