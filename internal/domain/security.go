package domain

// CandidateCommand is the literal command produced by a plugin. Immutable once built.
type CandidateCommand struct {
	pluginID string
	argv     []string
	text     string
	summary  string
}

// NewCandidateCommand pairs argv with its literal shell rendering and a summary.
func NewCandidateCommand(pluginID string, argv []string, text, summary string) CandidateCommand {
	return CandidateCommand{
		pluginID: pluginID,
		argv:     append([]string(nil), argv...),
		text:     text,
		summary:  summary,
	}
}

// PluginID is the id of the plugin that built the command.
func (c CandidateCommand) PluginID() string { return c.pluginID }

// Argv returns a copy of the argument vector.
func (c CandidateCommand) Argv() []string { return append([]string(nil), c.argv...) }

// Text is the literal command line checked by the safety validator.
func (c CandidateCommand) Text() string { return c.text }

// Summary is a human readable description of what the command does.
func (c CandidateCommand) Summary() string { return c.summary }

// IsZero reports whether the command was never built.
func (c CandidateCommand) IsZero() bool { return c.text == "" && len(c.argv) == 0 }

// RiskCategory enumerates why a command was refused.
type RiskCategory string

const (
	RiskRecursiveDelete     RiskCategory = "recursive_delete"
	RiskRootOrDeviceWrite   RiskCategory = "root_or_device_write"
	RiskDiskDestruction     RiskCategory = "disk_destruction"
	RiskRemoteCodeExecution RiskCategory = "remote_code_execution"
	RiskPrivilegeEscalation RiskCategory = "privilege_escalation"
	RiskUnparseable         RiskCategory = "unparseable"
	RiskEmptyCommand        RiskCategory = "empty_command"
	RiskCustomRule          RiskCategory = "custom_rule"
)

// Description is a short user facing label.
func (c RiskCategory) Description() string {
	switch c {
	case RiskRecursiveDelete:
		return "recursive or forced deletion"
	case RiskRootOrDeviceWrite:
		return "write to a root or device path"
	case RiskDiskDestruction:
		return "destructive disk operation"
	case RiskRemoteCodeExecution:
		return "unrestricted code execution"
	case RiskPrivilegeEscalation:
		return "privilege escalation"
	case RiskUnparseable:
		return "command could not be parsed"
	case RiskEmptyCommand:
		return "empty command"
	case RiskCustomRule:
		return "matched a configured deny rule"
	default:
		return string(c)
	}
}

// SafetyVerdict is Allow or Deny(category) for one literal command text.
type SafetyVerdict struct {
	allowed  bool
	subject  string
	category RiskCategory
	reason   string
}

// Allow builds an Allow verdict for text.
func Allow(text string) SafetyVerdict {
	return SafetyVerdict{allowed: true, subject: text}
}

// Deny builds a Deny verdict for text.
func Deny(text string, category RiskCategory, reason string) SafetyVerdict {
	return SafetyVerdict{subject: text, category: category, reason: reason}
}

// Allowed reports whether the command may be offered for confirmation.
func (v SafetyVerdict) Allowed() bool { return v.allowed }

// Subject is the command text the verdict was computed for.
func (v SafetyVerdict) Subject() string { return v.subject }

// Category is set on Deny verdicts.
func (v SafetyVerdict) Category() RiskCategory { return v.category }

// Reason explains a Deny verdict.
func (v SafetyVerdict) Reason() string { return v.reason }

// Covers reports whether the verdict was computed for cmd.
func (v SafetyVerdict) Covers(cmd CandidateCommand) bool {
	return v.subject != "" && v.subject == cmd.Text()
}

func (v SafetyVerdict) String() string {
	if v.allowed {
		return "allow"
	}
	return "deny(" + string(v.category) + "): " + v.reason
}
