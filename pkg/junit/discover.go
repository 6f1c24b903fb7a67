package junit

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Discover returns the JUnit report files selected by pattern under
// projectDir. Matched .xml files are taken as is; matched directories
// contribute their direct .xml children.
func Discover(projectDir, pattern string) ([]string, error) {
	pattern = strings.TrimPrefix(strings.TrimSpace(filepath.ToSlash(pattern)), "./")
	pattern = strings.TrimPrefix(pattern, "/")
	if pattern == "" || !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid report dir pattern %q", pattern)
	}

	fsys := os.DirFS(projectDir)
	matches, err := doublestar.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to glob %q: %w", pattern, err)
	}

	seen := map[string]struct{}{}
	found := make([]string, 0)
	add := func(rel string) {
		if _, ok := seen[rel]; ok {
			return
		}
		seen[rel] = struct{}{}
		found = append(found, rel)
	}

	for _, m := range matches {
		info, err := fs.Stat(fsys, m)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			if isReport(m) {
				add(m)
			}
			continue
		}
		entries, err := fs.ReadDir(fsys, m)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", m, err)
		}
		for _, e := range entries {
			if !e.IsDir() && isReport(e.Name()) {
				add(path.Join(m, e.Name()))
			}
		}
	}
	sort.Strings(found)

	files := make([]string, 0, len(found))
	for _, rel := range found {
		files = append(files, filepath.Join(projectDir, filepath.FromSlash(rel)))
	}
	return files, nil
}

func isReport(name string) bool {
	return strings.EqualFold(path.Ext(name), ".xml")
}
