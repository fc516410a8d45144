package gallery

import (
	"fmt"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

const manifestVersion = 1

// Manifest records the file listing an index artifact was built from. It is
// written next to the artifact and checked before a search so that a gallery
// that drifted since the last build is caught instead of silently returning
// wrong identities.
type Manifest struct {
	Version int       `cbor:"version"`
	Ext     string    `cbor:"ext"`
	Files   []string  `cbor:"files"`
	BuiltAt time.Time `cbor:"built_at"`
}

// ManifestPath returns the manifest location for a given index artifact.
func ManifestPath(indexPath string) string {
	return indexPath + ".manifest"
}

// NewManifest captures the registry's current listing.
func NewManifest(reg *Registry) *Manifest {
	return &Manifest{
		Version: manifestVersion,
		Ext:     reg.Ext(),
		Files:   reg.Files(),
		BuiltAt: time.Now().UTC(),
	}
}

// Write serializes the manifest to path.
func (m *Manifest) Write(path string) error {
	data, err := cbor.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding gallery manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing gallery manifest: %w", err)
	}
	return nil
}

// LoadManifest reads a manifest written by Write.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading gallery manifest: %w", err)
	}
	var m Manifest
	if err := cbor.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding gallery manifest: %w", err)
	}
	return &m, nil
}

// Verify compares the manifest against a live registry. Membership and
// order both matter; identity i is positional. It reports the first
// divergence found.
func (m *Manifest) Verify(reg *Registry) error {
	files := reg.Files()
	if len(files) != len(m.Files) {
		return fmt.Errorf("gallery has %d templates, index was built from %d", len(files), len(m.Files))
	}
	for i, name := range m.Files {
		if files[i] != name {
			return fmt.Errorf("template %d changed: index was built from %q, gallery has %q", i, name, files[i])
		}
	}
	return nil
}
