package cardigann

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/slipstream/providercheck/internal/indexer"
)

const (
	fileExtYML  = ".yml"
	fileExtYAML = ".yaml"
)

// LoadDir builds a registry from every definition file in dir. Files that fail
// to parse are registered as malformed under their file name so that a broken
// definition excludes one adapter instead of the whole run.
func LoadDir(dir string, logger zerolog.Logger) (*indexer.MemoryRegistry, error) {
	reg := indexer.NewMemoryRegistry()
	if dir == "" {
		return reg, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, indexer.NewRegistryError(fmt.Errorf("read definitions directory: %w", err))
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != fileExtYML && ext != fileExtYAML {
			continue
		}
		id := strings.TrimSuffix(name, filepath.Ext(name))
		path := filepath.Join(dir, name)

		def, err := ParseDefinitionFile(path)
		if err == nil && def.ID != id {
			err = fmt.Errorf("definition id %q does not match file name", def.ID)
		}
		if err != nil {
			logger.Warn().Str("file", path).Err(err).Msg("Failed to load definition")
			reg.RegisterBroken(id, err)
			continue
		}
		reg.Register(New(def, logger))
	}

	logger.Debug().Str("dir", dir).Int("definitions", reg.Len()).Msg("Loaded definitions")
	return reg, nil
}

