package report

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/lirany1/cikit/pkg/failures"
	"github.com/lirany1/cikit/pkg/logger"
	"github.com/lirany1/cikit/pkg/models"
	"github.com/lirany1/cikit/pkg/themes"
	"github.com/lirany1/cikit/pkg/view"
)

// DefaultOutputDir is the directory the HTML report is written to by default
const DefaultOutputDir = "report"

// DataFile is the name of the JSON data set written next to the pages
const DataFile = "data.json"

// HTMLReport writes the static HTML report
type HTMLReport struct {
	dir    string
	title  string
	themes *themes.Manager
	theme  string
}

// NewHTMLReport prepares a report in dir. It fails when dir exists and is
// not a directory, or exists and force is not set.
func NewHTMLReport(dir string, force bool) (*HTMLReport, error) {
	if dir == "" {
		dir = DefaultOutputDir
	}
	info, err := os.Stat(dir)
	switch {
	case err == nil && !info.IsDir():
		return nil, fmt.Errorf("%s exists and is not a directory", dir)
	case err == nil && !force:
		return nil, fmt.Errorf("%s already exists", dir)
	case err != nil && !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to stat %s: %w", dir, err)
	}
	return &HTMLReport{dir: dir, title: "Test report"}, nil
}

// Dir returns the output directory
func (r *HTMLReport) Dir() string {
	return r.dir
}

// WithTheme links the stylesheets of theme into every page
func (r *HTMLReport) WithTheme(m *themes.Manager, theme string) *HTMLReport {
	r.themes = m
	r.theme = theme
	return r
}

// WithTitle sets the page title
func (r *HTMLReport) WithTitle(title string) *HTMLReport {
	if title != "" {
		r.title = title
	}
	return r
}

// Write writes the assets, the data set, index.html and one
// failed-<i>.html page per failed suite
func (r *HTMLReport) Write(report models.FullReport) error {
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := r.writeAssets(); err != nil {
		return err
	}

	var stylesheets []string
	if r.themes != nil && r.theme != "" {
		var err error
		stylesheets, err = r.themes.CopyAssets(r.theme, r.dir)
		if err != nil {
			logger.Warnf("Failed to apply theme %s: %v", r.theme, err)
		}
	}

	if err := r.writeData(report); err != nil {
		return err
	}

	stale, _ := filepath.Glob(filepath.Join(r.dir, "failed-*.html"))
	for _, f := range stale {
		_ = os.Remove(f)
	}

	page := view.Page{
		Title:       r.title,
		Report:      report,
		Selection:   view.NoSelection(),
		Patterns:    failures.NewAnalyzer().GroupFailures(report.Failed),
		Stylesheets: stylesheets,
	}
	if err := r.writePage(page); err != nil {
		return err
	}
	for i := range report.Failed {
		page.Selection = view.Select(view.SuiteKey(i))
		if err := r.writePage(page); err != nil {
			return err
		}
	}

	logger.Infof("HTML report written to %s", r.dir)
	return nil
}

func (r *HTMLReport) writeAssets() error {
	return fs.WalkDir(view.Assets, "assets", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		target := filepath.Join(r.dir, filepath.FromSlash(path))
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		logger.Debugf("Writing UI asset file: %s", target)
		content, err := view.Assets.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read asset %s: %w", path, err)
		}
		if err := os.WriteFile(target, content, 0644); err != nil {
			return fmt.Errorf("failed to write asset %s: %w", target, err)
		}
		return nil
	})
}

func (r *HTMLReport) writeData(report models.FullReport) error {
	f, err := os.Create(filepath.Join(r.dir, DataFile))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", DataFile, err)
	}
	defer f.Close()

	return WriteJSON(f, report, false)
}

func (r *HTMLReport) writePage(page view.Page) error {
	name := view.PageFor(page.Selection)
	f, err := os.Create(filepath.Join(r.dir, name))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer f.Close()

	return view.RenderPage(f, page)
}
