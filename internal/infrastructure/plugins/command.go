package plugins

import (
	"fmt"
	"path"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/doeshing/dexter/internal/domain"
)

var (
	forbiddenTokens     = map[string]bool{";": true, "&&": true, "||": true, "|": true, ">": true, "<": true, ">>": true, "<<": true}
	forbiddenSubstrings = []string{"`", "$(", "${"}
)

// render turns argv into a literal command line. The rendering is parsed back and
// must yield exactly one simple command whose words equal argv.
func render(pluginID string, argv []string, summary string) (domain.CandidateCommand, error) {
	if len(argv) == 0 {
		return domain.CandidateCommand{}, domain.Invalidf(pluginID, "command is empty")
	}
	for _, arg := range argv {
		if err := checkArg(pluginID, arg); err != nil {
			return domain.CandidateCommand{}, err
		}
	}

	quoted := make([]string, 0, len(argv))
	for _, arg := range argv {
		q, err := syntax.Quote(arg, syntax.LangBash)
		if err != nil {
			return domain.CandidateCommand{}, domain.Invalidf(pluginID, "argument %q cannot be quoted: %v", arg, err)
		}
		quoted = append(quoted, q)
	}
	text := strings.Join(quoted, " ")

	if err := verifyRoundTrip(text, argv); err != nil {
		return domain.CandidateCommand{}, domain.Invalidf(pluginID, "%v", err)
	}
	return domain.NewCandidateCommand(pluginID, argv, text, summary), nil
}

func checkArg(pluginID, arg string) error {
	if forbiddenTokens[arg] {
		return domain.Invalidf(pluginID, "unsafe token %q", arg)
	}
	for _, bad := range forbiddenSubstrings {
		if strings.Contains(arg, bad) {
			return domain.Invalidf(pluginID, "unsafe token %q", arg)
		}
	}
	if strings.HasPrefix(arg, "@") {
		return domain.Invalidf(pluginID, "argument files are not allowed: %s", arg)
	}
	if strings.ContainsAny(arg, "\x00\n\r") {
		return domain.Invalidf(pluginID, "argument contains control characters")
	}
	_, value, _ := strings.Cut(arg, "=")
	if isDevicePath(arg) || isDevicePath(value) {
		return domain.Invalidf(pluginID, "device paths are not allowed: %s", arg)
	}
	return nil
}

// isDevicePath matches anything under /dev except the null device.
func isDevicePath(p string) bool {
	if !strings.HasPrefix(p, "/") {
		return false
	}
	clean := path.Clean(p)
	return (clean == "/dev" || strings.HasPrefix(clean, "/dev/")) && clean != "/dev/null"
}

func verifyRoundTrip(text string, argv []string) error {
	file, err := syntax.NewParser(syntax.Variant(syntax.LangBash)).Parse(strings.NewReader(text), "")
	if err != nil {
		return fmt.Errorf("rendered command does not parse: %w", err)
	}
	if len(file.Stmts) != 1 {
		return fmt.Errorf("rendered command has %d statements", len(file.Stmts))
	}
	stmt := file.Stmts[0]
	if stmt.Negated || stmt.Background || stmt.Coprocess || len(stmt.Redirs) > 0 {
		return fmt.Errorf("rendered command is not a simple command")
	}
	call, ok := stmt.Cmd.(*syntax.CallExpr)
	if !ok || len(call.Assigns) > 0 {
		return fmt.Errorf("rendered command is not a simple command")
	}
	if len(call.Args) != len(argv) {
		return fmt.Errorf("rendered command has %d words, want %d", len(call.Args), len(argv))
	}
	for i, w := range call.Args {
		value, ok := literal(w.Parts)
		if !ok || value != argv[i] {
			return fmt.Errorf("argument %d does not round-trip", i)
		}
	}
	return nil
}

func literal(parts []syntax.WordPart) (string, bool) {
	var sb strings.Builder
	for _, part := range parts {
		switch p := part.(type) {
		case *syntax.Lit:
			sb.WriteString(unescapeLit(p.Value))
		case *syntax.SglQuoted:
			if p.Dollar {
				return "", false
			}
			sb.WriteString(p.Value)
		case *syntax.DblQuoted:
			if p.Dollar {
				return "", false
			}
			for _, inner := range p.Parts {
				lit, ok := inner.(*syntax.Lit)
				if !ok {
					return "", false
				}
				sb.WriteString(unescapeDouble(lit.Value))
			}
		default:
			return "", false
		}
	}
	return sb.String(), true
}

func unescapeLit(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	escaped := false
	for _, r := range s {
		if r == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		sb.WriteRune(r)
	}
	return sb.String()
}

// unescapeDouble drops the backslash only before the characters that are special
// inside double quotes.
func unescapeDouble(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		if runes[i] == '\\' && i+1 < len(runes) && strings.ContainsRune("\\\"$`", runes[i+1]) {
			i++
		}
		sb.WriteRune(runes[i])
	}
	return sb.String()
}

// flag helpers shared by the adapters

func hasArg(argv []string, arg string) bool {
	for _, a := range argv {
		if a == arg {
			return true
		}
	}
	return false
}

// operand guards a path or value so it is never read as an option.
func operand(pluginID, name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", domain.Invalidf(pluginID, "%s is required", name)
	}
	if strings.HasPrefix(value, "-") {
		return "", domain.Invalidf(pluginID, "%s must not start with '-': %s", name, value)
	}
	return value, nil
}

func oneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}
