// file: internal/config/providers_file.go
// version: 1.0.0
// guid: 89a13918-4c6f-48e9-a390-98c3b1d83d42

package config

import (
	"fmt"
	"log"
	"os"
	"reflect"
	"slices"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/DS09AT/Shelvance-sub001/internal/models"
)

// ProviderFile is the YAML seed file layout.
type ProviderFile struct {
	Providers []ProviderEntry `yaml:"providers"`
}

// ProviderEntry is one provider in a seed file. Omitted priority defaults
// to models.DefaultPriority; omitted features enable everything.
type ProviderEntry struct {
	Name           string               `yaml:"name"`
	Implementation string               `yaml:"implementation"`
	Priority       *int                 `yaml:"priority,omitempty"`
	Features       *models.FeatureFlags `yaml:"features,omitempty"`
	Tags           []string             `yaml:"tags,omitempty"`
	Settings       map[string]any       `yaml:"settings,omitempty"`
}

// Definition converts the entry into an unsaved provider definition.
func (e ProviderEntry) Definition() (models.ProviderDefinition, error) {
	def := models.ProviderDefinition{
		Name:               strings.TrimSpace(e.Name),
		ImplementationKind: strings.TrimSpace(e.Implementation),
		Priority:           models.DefaultPriority,
		Features:           models.DefaultFeatureFlags(),
		Tags:               e.Tags,
	}
	if e.Priority != nil {
		def.Priority = *e.Priority
	}
	if e.Features != nil {
		def.Features = *e.Features
	}
	if len(e.Settings) > 0 {
		raw, err := json.Marshal(e.Settings)
		if err != nil {
			return def, fmt.Errorf("provider %q: invalid settings: %w", e.Name, err)
		}
		def.Settings = raw
	}
	return def, nil
}

// LoadProviderFile reads provider definitions from a YAML seed file.
func LoadProviderFile(path string) ([]models.ProviderDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read providers file: %w", err)
	}
	return ParseProviderFile(data)
}

// ParseProviderFile decodes a YAML seed document.
func ParseProviderFile(data []byte) ([]models.ProviderDefinition, error) {
	var file ProviderFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse providers file: %w", err)
	}

	defs := make([]models.ProviderDefinition, 0, len(file.Providers))
	seen := make(map[string]bool)
	for i, entry := range file.Providers {
		def, err := entry.Definition()
		if err != nil {
			return nil, err
		}
		key := strings.ToLower(def.Name)
		if key == "" {
			return nil, fmt.Errorf("provider #%d: name is required", i+1)
		}
		if seen[key] {
			return nil, fmt.Errorf("provider %q is listed twice", def.Name)
		}
		seen[key] = true
		defs = append(defs, def)
	}
	return defs, nil
}

// ProviderRegistry is the registry surface an import needs.
type ProviderRegistry interface {
	All() ([]models.ProviderDefinition, error)
	Upsert(def models.ProviderDefinition) (*models.ProviderDefinition, error)
}

// ImportResult summarizes an import.
type ImportResult struct {
	Created   []string
	Updated   []string
	Unchanged []string
	Failed    map[string]error
}

// ImportProviders upserts defs through the registry's validation path,
// matching existing providers by name. Providers missing from defs are left
// alone. One invalid entry does not stop the others.
func ImportProviders(reg ProviderRegistry, defs []models.ProviderDefinition) (*ImportResult, error) {
	existing, err := reg.All()
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	byName := make(map[string]models.ProviderDefinition, len(existing))
	for _, def := range existing {
		byName[strings.ToLower(def.Name)] = def
	}

	res := &ImportResult{Failed: make(map[string]error)}
	for _, def := range defs {
		cur, found := byName[strings.ToLower(def.Name)]
		if found {
			if sameDefinition(cur, def) {
				res.Unchanged = append(res.Unchanged, def.Name)
				continue
			}
			def.ID = cur.ID
		}
		if _, err := reg.Upsert(def); err != nil {
			log.Printf("[WARN] config: skipping provider %q from file: %v", def.Name, err)
			res.Failed[def.Name] = err
			continue
		}
		if found {
			res.Updated = append(res.Updated, def.Name)
		} else {
			res.Created = append(res.Created, def.Name)
		}
	}
	log.Printf("[INFO] config: imported providers: %d created, %d updated, %d unchanged, %d failed",
		len(res.Created), len(res.Updated), len(res.Unchanged), len(res.Failed))
	return res, nil
}

func sameDefinition(cur, next models.ProviderDefinition) bool {
	return cur.Name == next.Name &&
		cur.ImplementationKind == next.ImplementationKind &&
		cur.Priority == next.Priority &&
		cur.Features == next.Features &&
		slices.Equal(cur.Tags, next.Tags) &&
		sameSettings(cur.Settings, next.Settings)
}

func sameSettings(a, b json.RawMessage) bool {
	var va, vb any
	if len(a) > 0 {
		if err := json.Unmarshal(a, &va); err != nil {
			return false
		}
	}
	if len(b) > 0 {
		if err := json.Unmarshal(b, &vb); err != nil {
			return false
		}
	}
	return reflect.DeepEqual(va, vb)
}
