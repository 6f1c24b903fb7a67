// Package publish uploads an HTML report to cloud storage.
package publish

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/lirany1/cikit/pkg/logger"
)

// Target names a publication strategy
type Target string

const (
	TargetGCS Target = "gcs"
)

// ParseTarget parses a --publish-to value
func ParseTarget(s string) (Target, error) {
	switch s {
	case "gcs", "google-cloud-storage":
		return TargetGCS, nil
	default:
		return "", fmt.Errorf("invalid report publication %s", s)
	}
}

// DetectContentType returns the content type of a report file, by
// extension for the formats a report contains and sniffed otherwise
func DetectContentType(name string, content []byte) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".html":
		return "text/html"
	case ".json":
		return "application/json"
	case ".js":
		return "application/javascript"
	case ".css":
		return "text/css"
	default:
		return http.DetectContentType(content)
	}
}

// Publisher uploads every file of a report directory under a run prefix
type Publisher struct {
	bucket    Bucket
	reportDir string
	runID     string
}

// NewPublisher creates a publisher
func NewPublisher(bucket Bucket, reportDir, runID string) *Publisher {
	return &Publisher{bucket: bucket, reportDir: reportDir, runID: runID}
}

// Publish uploads the report. It returns the public URL of index.html
// when the bucket is public and the report has one, and "" otherwise.
func (p *Publisher) Publish(ctx context.Context) (string, error) {
	if p.runID == "" {
		return "", fmt.Errorf("a run id is required to publish a report")
	}

	public, err := p.bucket.IsPublic(ctx)
	if err != nil {
		return "", err
	}

	files, err := doublestar.Glob(os.DirFS(p.reportDir), "**/*")
	if err != nil {
		return "", fmt.Errorf("failed to list report files: %w", err)
	}

	indexFound := false
	for _, rel := range files {
		full := filepath.Join(p.reportDir, filepath.FromSlash(rel))
		info, err := os.Stat(full)
		if err != nil || info.IsDir() {
			continue
		}
		content, err := os.ReadFile(full)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", full, err)
		}

		if rel == "index.html" {
			indexFound = true
		}
		key := path.Join(p.runID, rel)
		contentType := DetectContentType(rel, content)
		logger.Debugf("publishing %s (%s) in bucket %s with key %s", full, contentType, p.bucket.Name(), key)

		if err := p.bucket.Upload(ctx, key, contentType, content); err != nil {
			return "", err
		}
	}

	if !public || !indexFound {
		return "", nil
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s/index.html", p.bucket.Name(), p.runID), nil
}
