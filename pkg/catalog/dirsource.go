package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/parley/pkg/domain"
	"gopkg.in/yaml.v3"
)

// DirSource loads command files from a directory. Each .json or .yaml file
// holds a mapping of intent name to definition; all files are merged into
// one stream. Ordering is deterministic: files sorted by name, intents
// sorted by name within a file. That order fixes the matcher's tie-break.
type DirSource struct {
	Path string
}

// NewDirSource creates a source reading from the given directory.
func NewDirSource(path string) *DirSource {
	return &DirSource{Path: path}
}

// Commands implements ports.CatalogSource.
func (s *DirSource) Commands(ctx context.Context) ([]domain.CommandDefinition, error) {
	entries, err := os.ReadDir(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read command directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".json", ".yaml", ".yml":
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var defs []domain.CommandDefinition
	for _, name := range names {
		path := filepath.Join(s.Path, name)
		fileDefs, err := parseFile(path)
		if err != nil {
			return nil, err
		}
		defs = append(defs, fileDefs...)
	}
	return defs, nil
}

func parseFile(path string) ([]domain.CommandDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read command file %s: %w", path, err)
	}

	byName := make(map[string]domain.CommandDefinition)
	if strings.HasSuffix(path, ".json") {
		if err := json.Unmarshal(data, &byName); err != nil {
			return nil, &Error{Source: path, Reason: fmt.Sprintf("malformed JSON: %v", err)}
		}
	} else {
		if err := yaml.Unmarshal(data, &byName); err != nil {
			return nil, &Error{Source: path, Reason: fmt.Sprintf("malformed YAML: %v", err)}
		}
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]domain.CommandDefinition, 0, len(names))
	for _, name := range names {
		def := byName[name]
		def.Name = name
		defs = append(defs, def)
	}
	return defs, nil
}
