// Package gallery maps stable numeric identities to enrolled template
// files. The engine index only knows candidates by number; the registry is
// the single source of truth for turning those numbers back into file names.
package gallery

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
)

// Registry assigns identity i to the i-th template file of a directory in
// byte-lexicographic name order. The assignment is deterministic for an
// unchanged directory, which is what keeps it in sync with an engine index
// built from the same listing.
type Registry struct {
	dir   string
	ext   string
	names []string
}

// Build enumerates the regular files in dir whose name ends with ext
// (compared case-insensitively), sorts them by name and assigns identities
// 0..n-1 in that order. Subdirectories and non-matching names are skipped.
func Build(dir, ext string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading template directory: %w", err)
	}

	lowerExt := strings.ToLower(ext)
	sorted := treemap.NewWith(utils.StringComparator)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(e.Name()), lowerExt) {
			continue
		}
		sorted.Put(e.Name(), nil)
	}

	reg := &Registry{dir: dir, ext: ext, names: make([]string, 0, sorted.Size())}
	for _, k := range sorted.Keys() {
		reg.names = append(reg.names, k.(string))
	}
	return reg, nil
}

// Resolve returns the file name mapped to id, or a synthesized ID_<n>
// placeholder when the identity is unknown. An unknown identity means the
// registry and the persisted index were built from different listings; the
// caller gets a recognizable name instead of a failure.
func (r *Registry) Resolve(id int) string {
	if id < 0 || id >= len(r.names) {
		return fmt.Sprintf("ID_%d", id)
	}
	return r.names[id]
}

// Path returns the full path of the template mapped to id.
func (r *Registry) Path(id int) string {
	return filepath.Join(r.dir, r.Resolve(id))
}

// Size returns the number of enrolled templates.
func (r *Registry) Size() int { return len(r.names) }

// Dir returns the gallery directory the registry was built from.
func (r *Registry) Dir() string { return r.dir }

// Ext returns the template extension the registry enumerated.
func (r *Registry) Ext() string { return r.ext }

// Files returns the enrolled file names in identity order.
func (r *Registry) Files() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}
