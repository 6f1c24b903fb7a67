package view

import "strconv"

// Selection holds the key of the expanded item, or nothing
type Selection struct {
	key string
	set bool
}

// NoSelection returns an empty selection
func NoSelection() Selection {
	return Selection{}
}

// Select returns a selection holding key
func Select(key string) Selection {
	return Selection{key: key, set: true}
}

// Toggle clears the selection when key is selected and selects key otherwise
func (s Selection) Toggle(key string) Selection {
	if s.Is(key) {
		return NoSelection()
	}
	return Select(key)
}

// Is reports whether key is the selected key
func (s Selection) Is(key string) bool {
	return s.set && s.key == key
}

// Key returns the selected key
func (s Selection) Key() (string, bool) {
	return s.key, s.set
}

// SuiteKey is the selection key of the failed suite at index i
func SuiteKey(i int) string {
	return strconv.Itoa(i)
}

// PageFor returns the static page showing the given selection
func PageFor(s Selection) string {
	key, ok := s.Key()
	if !ok {
		return "index.html"
	}
	return "failed-" + key + ".html"
}
