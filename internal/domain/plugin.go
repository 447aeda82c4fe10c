package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ParamSpec documents one parameter a plugin accepts from the router.
type ParamSpec struct {
	Name        string
	Required    bool
	Description string
}

// PluginCapability is the summary a plugin advertises to the router.
type PluginCapability struct {
	ID          string
	Summary     string
	Binaries    []string
	Params      []ParamSpec
	InstallHint string
}

func (p PluginCapability) clone() PluginCapability {
	p.Binaries = append([]string(nil), p.Binaries...)
	p.Params = append([]ParamSpec(nil), p.Params...)
	return p
}

// Parameters is the loosely typed key/value map extracted by the router.
type Parameters map[string]any

// Clone copies the top level of the map.
func (p Parameters) Clone() Parameters {
	out := make(Parameters, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Has reports whether key is present with a non-empty value.
func (p Parameters) Has(key string) bool {
	v, ok := p[key]
	if !ok || v == nil {
		return false
	}
	if s, isString := v.(string); isString {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// String returns the value of key rendered as a string.
func (p Parameters) String(key string) string {
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// Bool interprets key as a boolean; strings like "yes" and "true" count.
func (p Parameters) Bool(key string) bool {
	switch v := p[key].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "y", "1", "on":
			return true
		}
	case float64:
		return v != 0
	case int:
		return v != 0
	}
	return false
}

// Int interprets key as an integer.
func (p Parameters) Int(key string) (int, bool) {
	switch v := p[key].(type) {
	case float64:
		return int(v), v == float64(int(v))
	case int:
		return v, true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	}
	return 0, false
}

// Strings interprets key as a list; a single string becomes a one-element list.
func (p Parameters) Strings(key string) []string {
	switch v := p[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := strings.TrimSpace(fmt.Sprint(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return []string{s}
		}
	}
	return nil
}
