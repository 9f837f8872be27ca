package kb

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/starford/othala/internal/apperr"
)

// DefaultCategory receives entries stored without an explicit category.
const DefaultCategory = "general"

// DefaultCategories is the fixed partition set created on initialization
// when the configuration does not override it.
var DefaultCategories = []string{"general", "science", "technology", "personal"}

// Partition directories map 1:1 to category names, so names must be
// plain path components.
var categoryNameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)

// Categories guarantees the store's physical layout and maps category
// names to partition directories.
type Categories struct {
	base    string
	fixed   map[string]struct{}
	names   []string
	dynamic bool
}

// NewCategories creates a category manager for the given base directory.
// names is the recognized set (DefaultCategories when empty); dynamic
// allows resolving categories outside that set.
func NewCategories(base string, names []string, dynamic bool) *Categories {
	if len(names) == 0 {
		names = DefaultCategories
	}
	fixed := make(map[string]struct{}, len(names))
	sorted := make([]string, 0, len(names))
	for _, n := range names {
		if _, dup := fixed[n]; dup {
			continue
		}
		fixed[n] = struct{}{}
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)
	return &Categories{base: base, fixed: fixed, names: sorted, dynamic: dynamic}
}

// EnsureDirectories creates the base directory and every recognized
// partition. Idempotent; existing partitions are left untouched.
func (c *Categories) EnsureDirectories() error {
	if err := os.MkdirAll(c.base, 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	for _, name := range c.names {
		if err := os.MkdirAll(filepath.Join(c.base, name), 0o755); err != nil {
			return fmt.Errorf("create partition %s: %w", name, err)
		}
	}
	return nil
}

// Resolve returns the partition directory (relative to the store base)
// for a category name. A category is recognized when it is in the
// configured set, when dynamic creation is enabled, or when its
// partition already exists on disk.
func (c *Categories) Resolve(name string) (string, error) {
	if name == "" || !categoryNameRe.MatchString(name) {
		return "", fmt.Errorf("%q: %w", name, apperr.ErrUnknownCategory)
	}
	if _, ok := c.fixed[name]; ok {
		return name, nil
	}
	if c.dynamic {
		return name, nil
	}
	if info, err := os.Stat(filepath.Join(c.base, name)); err == nil && info.IsDir() {
		return name, nil
	}
	return "", fmt.Errorf("%q: %w", name, apperr.ErrUnknownCategory)
}

// All returns every category the store knows about: the configured set
// plus any partition directory on disk, alphabetically. This order is
// the tie-break for category-omitted retrieve and delete.
func (c *Categories) All() []string {
	seen := make(map[string]struct{}, len(c.names))
	out := make([]string, 0, len(c.names))
	for _, n := range c.names {
		seen[n] = struct{}{}
		out = append(out, n)
	}
	if entries, err := os.ReadDir(c.base); err == nil {
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			name := e.Name()
			if !categoryNameRe.MatchString(name) {
				continue
			}
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
