package security

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
	"mvdan.cc/sh/v3/syntax"

	"github.com/doeshing/dexter/assets"
	"github.com/doeshing/dexter/internal/domain"
	"github.com/doeshing/dexter/internal/pkg/filesystem"
	"github.com/doeshing/dexter/internal/ports"
)

// Validator implements ports.SafetyChecker. It parses the command with a POSIX/bash
// parser and inspects every simple command, redirect and pipeline, then applies any
// configured regex deny rules. Any finding denies; there is no partial allow.
type Validator struct {
	rules []compiledRule
}

type compiledRule struct {
	re   *regexp.Regexp
	rule DenyRule
}

// DenyRule describes an additional regex-based deny rule.
type DenyRule struct {
	Pattern  string `yaml:"pattern"`
	Category string `yaml:"category"`
	Message  string `yaml:"message"`
}

// RulesFile is the YAML schema root.
type RulesFile struct {
	Rules struct {
		DenyPatterns []DenyRule `yaml:"deny_patterns"`
	} `yaml:"rules"`
}

// NewValidator loads deny rules from path, or the embedded defaults when path is
// empty or missing.
func NewValidator(path string) (*Validator, error) {
	rules, err := loadRules(path)
	if err != nil {
		return nil, err
	}

	compiled := make([]compiledRule, 0, len(rules.Rules.DenyPatterns))
	for _, rule := range rules.Rules.DenyPatterns {
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile deny rule %q: %w", rule.Pattern, err)
		}
		compiled = append(compiled, compiledRule{re: re, rule: rule})
	}
	return &Validator{rules: compiled}, nil
}

// Check implements ports.SafetyChecker.
func (v *Validator) Check(command string) domain.SafetyVerdict {
	if strings.TrimSpace(command) == "" {
		return domain.Deny(command, domain.RiskEmptyCommand, "command is empty")
	}

	if v != nil {
		for _, rule := range v.rules {
			if rule.re.MatchString(command) {
				return domain.Deny(command, ruleCategory(rule.rule.Category), rule.rule.Message)
			}
		}
	}

	file, err := syntax.NewParser(syntax.Variant(syntax.LangBash)).Parse(strings.NewReader(command), "")
	if err != nil {
		return domain.Deny(command, domain.RiskUnparseable, err.Error())
	}
	if len(file.Stmts) == 0 {
		return domain.Deny(command, domain.RiskEmptyCommand, "command has no statements")
	}

	var f findings
	inspectFile(file, &f)
	if finding, ok := f.worst(); ok {
		return domain.Deny(command, finding.category, finding.reason)
	}
	return domain.Allow(command)
}

func ruleCategory(value string) domain.RiskCategory {
	switch c := domain.RiskCategory(strings.ToLower(strings.TrimSpace(value))); c {
	case domain.RiskRecursiveDelete, domain.RiskRootOrDeviceWrite, domain.RiskDiskDestruction,
		domain.RiskRemoteCodeExecution, domain.RiskPrivilegeEscalation:
		return c
	default:
		return domain.RiskCustomRule
	}
}

func loadRules(path string) (RulesFile, error) {
	var rules RulesFile
	data := assets.DefaultSafetyYAML
	if path != "" {
		raw, err := os.ReadFile(filesystem.ExpandPath(path))
		switch {
		case err == nil:
			data = raw
		case errors.Is(err, os.ErrNotExist):
			// fall back to defaults
		default:
			return RulesFile{}, fmt.Errorf("read safety rules: %w", err)
		}
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return RulesFile{}, fmt.Errorf("parse safety rules: %w", err)
	}
	return rules, nil
}

var _ ports.SafetyChecker = (*Validator)(nil)
