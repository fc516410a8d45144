package afis

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"

	"github.com/high-horse/afis-search/internal/index"
)

const artifactVersion = 1

// artifact is the persisted form of an embedded index: the build
// parameters plus the enrolled files under their identities.
type artifact struct {
	Version int          `cbor:"version"`
	Params  index.Params `cbor:"params"`
	Entries []entry      `cbor:"entries"`
}

type entry struct {
	ID   int    `cbor:"id"`
	File string `cbor:"file"`
}

func newArtifact(params index.Params) *artifact {
	return &artifact{Version: artifactVersion, Params: params}
}

func (a *artifact) add(id int, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving template path: %w", err)
	}
	a.Entries = append(a.Entries, entry{ID: id, File: abs})
	return nil
}

func (a *artifact) write(path string) error {
	data, err := cbor.Marshal(a)
	if err != nil {
		return fmt.Errorf("encoding index artifact: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing index artifact: %w", err)
	}
	return nil
}

func readArtifact(path string) (*artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading index artifact: %w", err)
	}
	var a artifact
	if err := cbor.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decoding index artifact: %w", err)
	}
	if a.Version != artifactVersion {
		return nil, fmt.Errorf("index artifact version %d is not supported", a.Version)
	}
	return &a, nil
}

// checkParams rejects an artifact whose build parameters differ from the
// ones the caller expects to search with.
func (a *artifact) checkParams(params index.Params) error {
	if a.Params != params {
		return fmt.Errorf("index was built with different parameters (%+v)", a.Params)
	}
	return nil
}
