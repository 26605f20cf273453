package schema

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultRegistryYAML []byte

// Registry maps entity types to their schemas. It is built once at startup
// and never mutated afterwards; every component reads the same instance.
type Registry struct {
	entities map[string]Entity
}

type registryFile struct {
	Entities map[string]Entity `yaml:"entities"`
}

// Parse builds a registry from YAML bytes.
func Parse(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("schema registry: %w", err)
	}
	if len(file.Entities) == 0 {
		return nil, fmt.Errorf("schema registry: no entities declared")
	}
	entities := make(map[string]Entity, len(file.Entities))
	for typ, e := range file.Entities {
		e.Type = typ
		if e.IDColumn == "" {
			e.IDColumn = "id"
		}
		if e.TenantColumn == "" {
			e.TenantColumn = "tenant_id"
		}
		if err := e.validate(); err != nil {
			return nil, err
		}
		entities[typ] = e
	}
	return &Registry{entities: entities}, nil
}

// Load reads a registry from path, or the embedded default when path is
// empty.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Parse(defaultRegistryYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema registry: %w", err)
	}
	return Parse(data)
}

// Default returns the embedded registry and panics on error; the embedded
// file is covered by tests.
func Default() *Registry {
	r, err := Parse(defaultRegistryYAML)
	if err != nil {
		panic(err)
	}
	return r
}

// Entity returns the schema for an entity type.
func (r *Registry) Entity(entityType string) (Entity, bool) {
	e, ok := r.entities[entityType]
	return e, ok
}

// Types returns the registered entity types, sorted.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.entities))
	for t := range r.entities {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
