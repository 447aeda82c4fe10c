package helpers

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/dexter/internal/domain"
)

// ConfigToMap converts cfg to a generic map keyed by its YAML field names
func ConfigToMap(cfg domain.Config) (map[string]interface{}, error) {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}

	var cfgMap map[string]interface{}
	if err := yaml.Unmarshal(raw, &cfgMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal to map: %w", err)
	}

	return cfgMap, nil
}

// TraverseNestedMap retrieves a value from a nested map using a key path
// List elements are addressed by index (providers.0.id)
// Returns the value and true if found, nil and false otherwise
func TraverseNestedMap(data interface{}, keyPath []string) (interface{}, bool) {
	if len(keyPath) == 0 {
		return data, true
	}

	switch node := data.(type) {
	case map[string]interface{}:
		next, exists := node[keyPath[0]]
		if !exists {
			return nil, false
		}
		return TraverseNestedMap(next, keyPath[1:])
	case []interface{}:
		idx, err := strconv.Atoi(keyPath[0])
		if err != nil || idx < 0 || idx >= len(node) {
			return nil, false
		}
		return TraverseNestedMap(node[idx], keyPath[1:])
	default:
		return nil, false
	}
}
