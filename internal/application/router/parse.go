package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/doeshing/dexter/internal/domain"
)

var errNoObject = errors.New("response contains no JSON object")

// AcceptDecision rejects payloads that contain no JSON object at all, so the
// fallback manager moves on to the next model.
func AcceptDecision(text string) error {
	if _, ok := extractObject(text); !ok {
		return errNoObject
	}
	return nil
}

// ParseDecision turns raw model output into a RoutingDecision. It never fails:
// whatever cannot be salvaged becomes Unresolved.
func ParseDecision(text string, rc domain.RoutingContext) domain.RoutingDecision {
	obj, ok := extractObject(text)
	if !ok {
		return domain.Unresolved("model output contained no decision")
	}

	intent := strings.ToLower(firstString(obj, "intent", "action", "type"))
	plugin := firstString(obj, "plugin", "plugin_id", "plugin_name", "tool")
	params := firstMap(obj, "parameters", "params", "args", "arguments")
	question := firstString(obj, "question", "clarification", "clarifying_question")
	partial := firstMap(obj, "partial_fields", "partial", "fields")
	confidence, hasConfidence := number(obj["confidence"])
	reasoning := firstString(obj, "reasoning", "reason", "explanation")

	var decision domain.RoutingDecision
	switch {
	case isClarify(intent) && question != "":
		decision = clarify(question, stringList(obj, "options", "choices"), merge(params, partial), plugin, rc)
	case isClarify(intent):
		// no question to ask: route with whatever fields did parse
		decision = route(plugin, merge(params, partial), rc)
	case intent == "unresolved" || intent == "none":
		decision = domain.Unresolved(orDefault(reasoning, "model could not map the request to a plugin"))
	case plugin != "":
		decision = route(plugin, params, rc)
		if decision.IsUnresolved() && question != "" {
			// the plugin is unusable but the question still is
			decision = clarify(question, stringList(obj, "options", "choices"), merge(params, partial), "", rc)
		}
	case question != "":
		decision = clarify(question, stringList(obj, "options", "choices"), merge(params, partial), "", rc)
	default:
		decision = domain.Unresolved(orDefault(reasoning, "model did not name a plugin"))
	}
	decision.Confidence = confidence
	decision.HasConfidence = hasConfidence
	if decision.Reasoning == "" {
		decision.Reasoning = reasoning
	}
	return decision
}

func isClarify(intent string) bool {
	switch intent {
	case "clarify", "clarification", "ask", "question", "needs_clarification":
		return true
	default:
		return false
	}
}

func route(plugin string, params domain.Parameters, rc domain.RoutingContext) domain.RoutingDecision {
	if plugin == "" {
		return domain.Unresolved("model asked for clarification without a question or plugin")
	}
	id, ok := canonicalPlugin(plugin, rc)
	if !ok {
		return domain.Unresolved(fmt.Sprintf("model chose unknown plugin %q", plugin))
	}
	return domain.RouteTo(id, params)
}

func clarify(question string, options []string, partial domain.Parameters, plugin string, rc domain.RoutingContext) domain.RoutingDecision {
	decision := domain.ClarifyWith(question, options, partial)
	if id, ok := canonicalPlugin(plugin, rc); ok {
		decision.PluginID = id
	}
	return decision
}

// canonicalPlugin matches name against the registered ids, ignoring case.
func canonicalPlugin(name string, rc domain.RoutingContext) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	for _, capability := range rc.Plugins() {
		if strings.EqualFold(capability.ID, name) {
			return capability.ID, true
		}
	}
	return "", false
}

// extractObject finds the first decodable JSON object in text. Code fences,
// prose before the object and trailing text are all tolerated.
func extractObject(text string) (map[string]any, bool) {
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		var obj map[string]any
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		dec.UseNumber()
		if err := dec.Decode(&obj); err == nil && obj != nil {
			return normalize(obj).(map[string]any), true
		}
	}
	return nil, false
}

// normalize turns json.Number values into float64 so Parameters accessors see
// the same types a plain Unmarshal would produce.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = normalize(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = normalize(item)
		}
		return t
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		return v
	}
}

func firstString(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := obj[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func firstMap(obj map[string]any, keys ...string) domain.Parameters {
	for _, key := range keys {
		switch v := obj[key].(type) {
		case map[string]any:
			return domain.Parameters(v).Clone()
		case string:
			// some models double-encode the parameter object
			if nested, ok := extractObject(v); ok {
				return domain.Parameters(nested)
			}
		}
	}
	return domain.Parameters{}
}

func stringList(obj map[string]any, keys ...string) []string {
	for _, key := range keys {
		if list := domain.Parameters(obj).Strings(key); len(list) > 0 {
			return list
		}
	}
	return nil
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// merge copies b and overlays a on it, so a wins on conflicts.
func merge(a, b domain.Parameters) domain.Parameters {
	out := b.Clone()
	for k, v := range a {
		out[k] = v
	}
	return out
}

func orDefault(value, def string) string {
	if value == "" {
		return def
	}
	return value
}
