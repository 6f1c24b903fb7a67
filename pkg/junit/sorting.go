package junit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lirany1/cikit/pkg/models"
)

// SortingOrder is the direction of a report sort
type SortingOrder int

const (
	Desc SortingOrder = iota
	Asc
)

// ParseSortingOrder parses ASC or DESC, case-insensitively
func ParseSortingOrder(s string) (SortingOrder, error) {
	switch strings.ToUpper(s) {
	case "ASC":
		return Asc, nil
	case "DESC":
		return Desc, nil
	default:
		return Desc, fmt.Errorf("cannot parse sorting order, invalid token %s", s)
	}
}

// ReportSorting orders suites by their duration
type ReportSorting struct {
	Order SortingOrder
}

// ParseReportSorting parses "time", "time ASC" or "time DESC"
func ParseReportSorting(s string) (ReportSorting, error) {
	chunks := strings.Fields(s)
	if len(chunks) == 0 || len(chunks) > 2 || !strings.EqualFold(chunks[0], "time") {
		return ReportSorting{}, fmt.Errorf("cannot parse report sorting, invalid token %q", s)
	}
	if len(chunks) == 1 {
		return ReportSorting{Order: Desc}, nil
	}
	order, err := ParseSortingOrder(chunks[1])
	if err != nil {
		return ReportSorting{}, err
	}
	return ReportSorting{Order: order}, nil
}

// Apply sorts suites in place
func (s ReportSorting) Apply(suites []models.SuiteResult) {
	sort.SliceStable(suites, func(i, j int) bool {
		if s.Order == Asc {
			return suites[i].Summary.Time < suites[j].Summary.Time
		}
		return suites[i].Summary.Time > suites[j].Summary.Time
	})
}

func (s ReportSorting) String() string {
	if s.Order == Asc {
		return "time ASC"
	}
	return "time DESC"
}
