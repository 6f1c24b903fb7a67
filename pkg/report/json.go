package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/lirany1/cikit/pkg/models"
)

// WriteJSON writes the full report, indented unless compact is set
func WriteJSON(w io.Writer, report models.FullReport, compact bool) error {
	enc := json.NewEncoder(w)
	if !compact {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// ReadJSON reads a report written by WriteJSON
func ReadJSON(r io.Reader) (models.FullReport, error) {
	var report models.FullReport
	if err := json.NewDecoder(r).Decode(&report); err != nil {
		return models.FullReport{}, fmt.Errorf("failed to decode report: %w", err)
	}
	return report, nil
}
