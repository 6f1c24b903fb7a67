package themes

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/getgauge/common"
)

// OutputDir is the report subdirectory theme assets are copied to
const OutputDir = "theme"

// Manager handles theme management
type Manager struct {
	projectDir string
}

// NewManager creates a new theme manager resolving relative themes
// against projectDir
func NewManager(projectDir string) *Manager {
	return &Manager{projectDir: projectDir}
}

// CopyAssets copies theme assets to the theme directory of the report and
// returns the stylesheets to link, relative to the report root
func (m *Manager) CopyAssets(themeName, reportDir string) ([]string, error) {
	themePath, err := m.getThemePath(themeName)
	if err != nil {
		return nil, err
	}

	assetsPath := filepath.Join(themePath, "assets")
	if info, err := os.Stat(assetsPath); err != nil || !info.IsDir() {
		// themes without an assets directory are flat
		assetsPath = themePath
	}

	target := filepath.Join(reportDir, OutputDir)
	if _, err := common.MirrorDir(assetsPath, target); err != nil {
		return nil, fmt.Errorf("failed to copy theme %s: %w", themeName, err)
	}

	matches, err := doublestar.Glob(os.DirFS(assetsPath), "**/*.css")
	if err != nil {
		return nil, fmt.Errorf("failed to list theme stylesheets: %w", err)
	}
	sort.Strings(matches)

	stylesheets := make([]string, 0, len(matches))
	for _, m := range matches {
		stylesheets = append(stylesheets, path.Join(OutputDir, m))
	}
	return stylesheets, nil
}

// getThemePath returns the full path to a theme
func (m *Manager) getThemePath(themeName string) (string, error) {
	candidates := []string{themeName}
	if !filepath.IsAbs(themeName) {
		candidates = []string{
			filepath.Join(m.projectDir, themeName),
			filepath.Join(m.projectDir, "themes", themeName),
		}
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("theme %s not found", themeName)
}
