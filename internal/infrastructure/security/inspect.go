package security

import (
	"bytes"
	"path"
	"regexp"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/doeshing/dexter/internal/domain"
)

// severity orders categories when a command trips several checks.
var severity = []domain.RiskCategory{
	domain.RiskDiskDestruction,
	domain.RiskRootOrDeviceWrite,
	domain.RiskRecursiveDelete,
	domain.RiskPrivilegeEscalation,
	domain.RiskRemoteCodeExecution,
}

type finding struct {
	category domain.RiskCategory
	reason   string
}

type findings []finding

func (f *findings) add(category domain.RiskCategory, reason string) {
	*f = append(*f, finding{category: category, reason: reason})
}

// worst returns the first finding of the most severe category present.
func (f findings) worst() (finding, bool) {
	for _, category := range severity {
		for _, item := range f {
			if item.category == category {
				return item, true
			}
		}
	}
	if len(f) > 0 {
		return f[0], true
	}
	return finding{}, false
}

var (
	devicePath = regexp.MustCompile(`^/dev/(sd[a-z]|hd[a-z]|vd[a-z]|xvd[a-z]|nvme\d|mmcblk\d|disk\d|rdisk\d|loop\d|md\d|dm-\d|mapper/|mem$|kmem$|port$)`)

	systemDirs = map[string]bool{
		"/": true, "/bin": true, "/boot": true, "/dev": true, "/etc": true, "/lib": true,
		"/lib32": true, "/lib64": true, "/proc": true, "/root": true, "/sbin": true, "/sys": true,
		"/usr": true, "/var": true, "/opt": true, "/home": true, "/Users": true, "/System": true,
		"/Library": true, "/Applications": true, "/private": true,
	}

	harmlessDevices = map[string]bool{
		"/dev/null": true, "/dev/stdout": true, "/dev/stderr": true, "/dev/tty": true,
	}

	diskTools = map[string]string{
		"mkfs": "formats a filesystem", "mke2fs": "formats a filesystem", "mkswap": "formats swap space",
		"fdisk": "edits a partition table", "sfdisk": "edits a partition table", "cfdisk": "edits a partition table",
		"parted": "edits a partition table", "gdisk": "edits a partition table", "sgdisk": "edits a partition table",
		"wipefs": "wipes filesystem signatures", "shred": "irrecoverably overwrites data",
		"blkdiscard": "discards every block of a device", "badblocks": "rewrites device blocks",
	}

	privilegeTools = map[string]bool{
		"sudo": true, "doas": true, "su": true, "pkexec": true, "run0": true, "runas": true,
	}

	interpreters = map[string]bool{
		"sh": true, "bash": true, "zsh": true, "dash": true, "ksh": true, "fish": true, "csh": true, "tcsh": true,
		"python": true, "python2": true, "python3": true, "perl": true, "ruby": true, "node": true,
		"php": true, "lua": true, "pwsh": true, "osascript": true,
	}

	shells = map[string]bool{
		"sh": true, "bash": true, "zsh": true, "dash": true, "ksh": true, "fish": true, "csh": true, "tcsh": true,
	}

	// inlineLetters lists, per interpreter, the short options that take program
	// text. They count anywhere in a grouped flag such as -lc or -ne.
	inlineLetters = map[string]string{
		"sh": "c", "bash": "c", "zsh": "c", "dash": "c", "ksh": "c", "fish": "c", "csh": "c", "tcsh": "c",
		"python": "c", "python2": "c", "python3": "c", "perl": "eE", "ruby": "e", "node": "ep",
		"php": "rRBE", "lua": "e", "osascript": "e",
	}

	inlineLongFlags = map[string]bool{
		"--eval": true, "--print": true, "--command": true, "--init-command": true,
		"-command": true, "-encodedcommand": true, "-c": true, "-e": true, "-ec": true,
	}

	// shellValueFlags take a separate value before the script operand.
	shellValueFlags = map[string]bool{"-o": true, "+o": true, "-O": true, "+O": true}

	stdinScripts = map[string]bool{"-": true, "-s": true, "/dev/stdin": true, "/dev/fd/0": true, "/proc/self/fd/0": true}

	outputFlags = map[string]bool{
		"-o": true, "--output": true, "--out": true, "--output-file": true, "-of": true, "--sidecar": true,
	}

	evaluators = map[string]bool{"eval": true, "source": true, ".": true}

	// wrappers run their trailing arguments as a command.
	wrappers = map[string]bool{
		"env": true, "command": true, "builtin": true, "exec": true, "nice": true, "nohup": true,
		"time": true, "timeout": true, "stdbuf": true, "ionice": true, "xargs": true, "busybox": true,
		"chroot": true, "setsid": true, "caffeinate": true,
	}

	// wrapperValueFlags lists, per wrapper, the options that take a separate value.
	wrapperValueFlags = map[string]map[string]bool{
		"sudo":    {"-u": true, "-g": true, "-C": true, "-D": true, "-h": true, "-p": true, "-r": true, "-t": true, "-U": true},
		"doas":    {"-u": true, "-C": true},
		"su":      {"-c": true, "-s": true, "-g": true, "-G": true},
		"env":     {"-u": true, "-C": true, "-S": true},
		"timeout": {"-s": true, "-k": true},
		"nice":    {"-n": true},
		"ionice":  {"-c": true, "-n": true, "-p": true},
		"xargs":   {"-I": true, "-L": true, "-P": true, "-n": true, "-s": true, "-d": true, "-E": true, "-a": true},
	}
)

// word is a resolved shell word. Dynamic words contain expansions whose value is
// only known at run time.
type word struct {
	text    string
	dynamic bool
}

func resolve(w *syntax.Word) word {
	var sb strings.Builder
	if !appendLiteral(&sb, w.Parts) {
		return word{text: printWord(w), dynamic: true}
	}
	return word{text: sb.String()}
}

func appendLiteral(sb *strings.Builder, parts []syntax.WordPart) bool {
	for _, part := range parts {
		switch p := part.(type) {
		case *syntax.Lit:
			sb.WriteString(unescape(p.Value))
		case *syntax.SglQuoted:
			if p.Dollar {
				return false
			}
			sb.WriteString(p.Value)
		case *syntax.DblQuoted:
			if p.Dollar || !appendLiteral(sb, p.Parts) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func unescape(s string) string {
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

func printWord(w *syntax.Word) string {
	var buf bytes.Buffer
	if err := syntax.NewPrinter().Print(&buf, w); err != nil {
		return "?"
	}
	return buf.String()
}

func inspectFile(file *syntax.File, f *findings) {
	syntax.Walk(file, func(node syntax.Node) bool {
		switch n := node.(type) {
		case *syntax.Stmt:
			inspectRedirects(n.Redirs, f)
		case *syntax.CallExpr:
			inspectCall(n, f)
		case *syntax.BinaryCmd:
			if n.Op == syntax.Pipe || n.Op == syntax.PipeAll {
				inspectPipeTarget(n.Y, f)
			}
		case *syntax.FuncDecl:
			reason := "defines a shell function"
			if n.Name != nil && callsItself(n) {
				reason = "self-replicating shell function (fork bomb)"
			}
			f.add(domain.RiskRemoteCodeExecution, reason)
		case *syntax.CmdSubst:
			f.add(domain.RiskRemoteCodeExecution, "command substitution runs an unchecked command")
		case *syntax.ProcSubst:
			f.add(domain.RiskRemoteCodeExecution, "process substitution runs an unchecked command")
		}
		return true
	})
}

func callsItself(fn *syntax.FuncDecl) bool {
	found := false
	syntax.Walk(fn.Body, func(node syntax.Node) bool {
		if call, ok := node.(*syntax.CallExpr); ok && len(call.Args) > 0 {
			if w := resolve(call.Args[0]); !w.dynamic && w.text == fn.Name.Value {
				found = true
			}
		}
		return !found
	})
	return found
}

func inspectRedirects(redirs []*syntax.Redirect, f *findings) {
	for _, r := range redirs {
		switch r.Op {
		case syntax.RdrOut, syntax.AppOut, syntax.ClbOut, syntax.RdrAll, syntax.AppAll, syntax.RdrInOut:
		default:
			continue
		}
		if r.Word == nil {
			continue
		}
		target := resolve(r.Word)
		switch {
		case target.dynamic:
			f.add(domain.RiskRootOrDeviceWrite, "redirects output to a path computed at run time: "+target.text)
		case isDevice(target.text):
			f.add(domain.RiskRootOrDeviceWrite, "redirects output to device "+target.text)
		case isSystemPath(target.text):
			f.add(domain.RiskRootOrDeviceWrite, "redirects output into system path "+target.text)
		}
	}
}

func inspectPipeTarget(stmt *syntax.Stmt, f *findings) {
	call := leftmostCall(stmt)
	if call == nil {
		return
	}
	args := resolveArgs(call.Args)
	prog, rest := unwrap(args, f)
	if prog.dynamic {
		return
	}
	name := programName(prog.text)
	if interpreters[name] && !hasScriptArgument(rest) {
		f.add(domain.RiskRemoteCodeExecution, "pipes data into the "+name+" interpreter")
	}
}

func leftmostCall(stmt *syntax.Stmt) *syntax.CallExpr {
	for stmt != nil {
		switch cmd := stmt.Cmd.(type) {
		case *syntax.CallExpr:
			return cmd
		case *syntax.BinaryCmd:
			stmt = cmd.X
		default:
			return nil
		}
	}
	return nil
}

func hasScriptArgument(args []word) bool {
	for _, a := range args {
		switch {
		case a.dynamic:
			return true
		case stdinScripts[a.text]:
			return false
		case !strings.HasPrefix(a.text, "-"):
			return true
		}
	}
	return false
}

// inlineScript reports whether an interpreter is given program text on its
// command line. For shells the text is returned so it can be inspected too.
func inlineScript(name string, args []word) (word, bool) {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a.dynamic {
			return word{}, false
		}
		flag, _, _ := strings.Cut(a.text, "=")
		switch {
		case a.text == "--" || a.text == "-":
			return word{}, false
		case name == "pwsh" && strings.HasPrefix(a.text, "-"):
			if inlineLongFlags[strings.ToLower(flag)] {
				return word{}, true
			}
		case inlineLongFlags[flag] && strings.HasPrefix(flag, "--"):
			return firstOperand(name, args[i+1:]), true
		case strings.HasPrefix(a.text, "--"):
		case strings.HasPrefix(a.text, "-") && len(a.text) > 1:
			if strings.ContainsAny(a.text[1:], inlineLetters[name]) {
				return firstOperand(name, args[i+1:]), true
			}
			if shells[name] && shellValueFlags[a.text] {
				i++
			}
		case strings.HasPrefix(a.text, "+") && shells[name]:
			if shellValueFlags[a.text] {
				i++
			}
		default:
			// the script file; later arguments belong to it
			return word{}, false
		}
	}
	return word{}, false
}

func firstOperand(name string, args []word) word {
	if !shells[name] {
		return word{}
	}
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a.dynamic:
			return a
		case shellValueFlags[a.text]:
			i++
		case strings.HasPrefix(a.text, "-") || strings.HasPrefix(a.text, "+"):
		default:
			return a
		}
	}
	return word{}
}

// inspectInline runs the full inspection over a shell's inline script.
func inspectInline(name string, script word, f *findings) {
	if script.dynamic || strings.TrimSpace(script.text) == "" {
		return
	}
	file, err := syntax.NewParser(syntax.Variant(syntax.LangBash)).Parse(strings.NewReader(script.text), "")
	if err != nil {
		f.add(domain.RiskRemoteCodeExecution, name+" inline script does not parse: "+err.Error())
		return
	}
	inspectFile(file, f)
}

func resolveArgs(words []*syntax.Word) []word {
	out := make([]word, 0, len(words))
	for _, w := range words {
		out = append(out, resolve(w))
	}
	return out
}

func programName(text string) string {
	name := path.Base(strings.TrimPrefix(text, `\`))
	if strings.HasPrefix(name, "mkfs.") {
		return "mkfs"
	}
	return name
}

// unwrap strips privilege and exec wrappers, reporting escalation, and returns the
// program that actually runs with its arguments.
func unwrap(args []word, f *findings) (word, []word) {
	for len(args) > 0 {
		prog := args[0]
		if prog.dynamic {
			return prog, args[1:]
		}
		name := programName(prog.text)
		switch {
		case privilegeTools[name]:
			f.add(domain.RiskPrivilegeEscalation, "runs with elevated privileges via "+name)
			args = skipWrapperOptions(args[1:], name)
		case wrappers[name]:
			args = skipWrapperOptions(args[1:], name)
		default:
			return prog, args[1:]
		}
	}
	return word{}, nil
}

func skipWrapperOptions(args []word, wrapper string) []word {
	for len(args) > 0 {
		a := args[0]
		switch {
		case a.dynamic:
			return args
		case a.text == "--":
			return args[1:]
		case strings.HasPrefix(a.text, "-") && len(a.text) > 1:
			args = args[1:]
			if wrapperValueFlags[wrapper][a.text] && len(args) > 0 {
				args = args[1:]
			}
		case wrapper == "env" && strings.Contains(a.text, "="):
			args = args[1:]
		case wrapper == "timeout" || (wrapper == "nice" && isNumber(a.text)):
			// duration or niceness value precedes the command
			return args[1:]
		default:
			return args
		}
	}
	return args
}

func isNumber(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func inspectCall(call *syntax.CallExpr, f *findings) {
	if len(call.Args) == 0 {
		return
	}
	prog, args := unwrap(resolveArgs(call.Args), f)
	if prog.text == "" && !prog.dynamic {
		return
	}
	if prog.dynamic {
		f.add(domain.RiskRemoteCodeExecution, "program name is computed at run time: "+prog.text)
		return
	}

	name := programName(prog.text)
	if reason, ok := diskTools[name]; ok {
		f.add(domain.RiskDiskDestruction, name+" "+reason)
		return
	}
	inspectOutputs(name, args, f)

	switch {
	case name == "rm":
		inspectRemove(args, f)
	case name == "find":
		inspectFind(args, f)
	case name == "dd":
		inspectDD(args, f)
	case name == "tee", name == "cp", name == "mv", name == "install", name == "ln", name == "truncate", name == "rsync":
		inspectWriteTargets(name, args, f)
	case name == "chmod", name == "chown", name == "chgrp":
		inspectPermissions(name, args, f)
	case evaluators[name]:
		f.add(domain.RiskRemoteCodeExecution, name+" evaluates arbitrary code")
	case interpreters[name]:
		if script, ok := inlineScript(name, args); ok {
			f.add(domain.RiskRemoteCodeExecution, name+" runs an inline script")
			if shells[name] {
				inspectInline(name, script, f)
			}
		}
	case name == "yt-dlp":
		for _, a := range args {
			if a.text == "--exec" || strings.HasPrefix(a.text, "--exec=") || strings.HasPrefix(a.text, "--exec-before-download") {
				f.add(domain.RiskRemoteCodeExecution, "yt-dlp --exec runs arbitrary commands")
				break
			}
		}
	case name == "diskutil":
		for _, a := range args {
			if strings.HasPrefix(strings.ToLower(a.text), "erase") || strings.HasPrefix(strings.ToLower(a.text), "partition") {
				f.add(domain.RiskDiskDestruction, "diskutil "+a.text+" destroys a volume")
				break
			}
		}
	}
}

func inspectRemove(args []word, f *findings) {
	recursive, force := false, false
	var paths []word
	endOfFlags := false
	for _, a := range args {
		switch {
		case a.dynamic:
			paths = append(paths, a)
		case endOfFlags:
			paths = append(paths, a)
		case a.text == "--":
			endOfFlags = true
		case strings.HasPrefix(a.text, "--"):
			switch a.text {
			case "--recursive":
				recursive = true
			case "--force":
				force = true
			}
		case strings.HasPrefix(a.text, "-") && len(a.text) > 1:
			flags := a.text[1:]
			if strings.ContainsAny(flags, "rR") {
				recursive = true
			}
			if strings.Contains(flags, "f") {
				force = true
			}
		default:
			paths = append(paths, a)
		}
	}

	switch {
	case recursive && force:
		f.add(domain.RiskRecursiveDelete, "rm with recursive and force flags")
	case recursive:
		f.add(domain.RiskRecursiveDelete, "rm with recursive flag")
	case force:
		f.add(domain.RiskRecursiveDelete, "rm with force flag")
	}
	for _, p := range paths {
		if p.dynamic || isBroadPath(p.text) {
			f.add(domain.RiskRecursiveDelete, "rm targets a broad path: "+p.text)
		}
	}
}

func inspectFind(args []word, f *findings) {
	for i, a := range args {
		switch a.text {
		case "-delete":
			f.add(domain.RiskRecursiveDelete, "find -delete removes every match")
		case "-exec", "-execdir", "-ok", "-okdir":
			if i+1 >= len(args) {
				continue
			}
			next := args[i+1]
			if next.dynamic {
				f.add(domain.RiskRemoteCodeExecution, "find "+a.text+" runs a computed program")
				continue
			}
			switch name := programName(next.text); {
			case name == "rm", name == "shred", name == "unlink":
				f.add(domain.RiskRecursiveDelete, "find "+a.text+" "+name+" deletes every match")
			case interpreters[name]:
				f.add(domain.RiskRemoteCodeExecution, "find "+a.text+" runs the "+name+" interpreter")
			}
		}
	}
}

func inspectDD(args []word, f *findings) {
	for _, a := range args {
		if !strings.HasPrefix(a.text, "of=") {
			continue
		}
		target := strings.TrimPrefix(a.text, "of=")
		switch {
		case a.dynamic:
			f.add(domain.RiskDiskDestruction, "dd writes to a path computed at run time")
		case isDevice(target):
			f.add(domain.RiskDiskDestruction, "dd writes to block device "+target)
		case isSystemPath(target):
			f.add(domain.RiskDiskDestruction, "dd overwrites system path "+target)
		}
	}
}

func inspectWriteTargets(name string, args []word, f *findings) {
	var operands []word
	for _, a := range args {
		if a.dynamic || !strings.HasPrefix(a.text, "-") {
			operands = append(operands, a)
		}
	}
	targets := operands
	switch name {
	case "cp", "install", "ln", "rsync":
		// only the destination is written
		if len(operands) > 0 {
			targets = operands[len(operands)-1:]
		}
	}
	for _, a := range targets {
		switch {
		case a.dynamic:
			if name == "tee" || name == "truncate" {
				f.add(domain.RiskRootOrDeviceWrite, name+" writes to a path computed at run time")
			}
		case isDevice(a.text):
			f.add(domain.RiskRootOrDeviceWrite, name+" writes to device "+a.text)
		case isSystemPath(a.text):
			f.add(domain.RiskRootOrDeviceWrite, name+" writes to system path "+a.text)
		}
	}
}

// inspectOutputs applies to every program: device arguments, output options and
// the operands that known tools write to.
func inspectOutputs(name string, args []word, f *findings) {
	var operands []word
	for i, a := range args {
		if a.dynamic {
			operands = append(operands, a)
			continue
		}
		flag, value, hasValue := strings.Cut(a.text, "=")
		if isDevice(a.text) || (hasValue && isDevice(value)) {
			f.add(domain.RiskRootOrDeviceWrite, name+" addresses device "+a.text)
			continue
		}
		switch {
		case outputFlags[a.text] && i+1 < len(args):
			if next := args[i+1]; !next.dynamic && isSystemPath(next.text) {
				f.add(domain.RiskRootOrDeviceWrite, name+" "+a.text+" writes to system path "+next.text)
			}
		case hasValue && outputFlags[flag]:
			if isSystemPath(value) {
				f.add(domain.RiskRootOrDeviceWrite, name+" "+flag+" writes to system path "+value)
			}
		case strings.HasPrefix(a.text, "-"):
		default:
			operands = append(operands, a)
		}
	}
	for _, a := range writtenOperands(name, operands) {
		if !a.dynamic && isSystemPath(a.text) {
			f.add(domain.RiskRootOrDeviceWrite, name+" writes to system path "+a.text)
		}
	}
}

// writtenOperands picks the operands a tool creates or overwrites.
func writtenOperands(name string, operands []word) []word {
	switch name {
	case "mkdir", "touch":
		return operands
	case "ffmpeg", "qpdf", "ocrmypdf", "pdftk", "convert", "magick":
		if len(operands) > 0 {
			return operands[len(operands)-1:]
		}
	case "vips":
		// vips <operation> <in> <out> [args]
		if len(operands) > 2 {
			return operands[2:3]
		}
	}
	return nil
}

var setuidMode = regexp.MustCompile(`^([ugoa]*[+=][rwxXt]*s[rwxXst]*|[2467][0-7]{3})$`)

func inspectPermissions(name string, args []word, f *findings) {
	recursive := false
	for _, a := range args {
		if a.text == "-R" || a.text == "--recursive" || (strings.HasPrefix(a.text, "-") && !strings.HasPrefix(a.text, "--") && strings.Contains(a.text, "R")) {
			recursive = true
		}
	}
	for _, a := range args {
		if a.dynamic || strings.HasPrefix(a.text, "-") {
			continue
		}
		if name == "chmod" && setuidMode.MatchString(a.text) {
			f.add(domain.RiskPrivilegeEscalation, "chmod sets the setuid/setgid bit")
			continue
		}
		if isSystemPath(a.text) || (recursive && isBroadPath(a.text)) {
			f.add(domain.RiskRootOrDeviceWrite, name+" changes permissions on "+a.text)
		}
	}
}

func isDevice(p string) bool {
	if harmlessDevices[p] {
		return false
	}
	return devicePath.MatchString(p)
}

// isSystemPath reports whether p is root, a top-level system directory, or inside one
// of the directories that hold the OS itself.
func isSystemPath(p string) bool {
	if !strings.HasPrefix(p, "/") || harmlessDevices[p] {
		return false
	}
	clean := path.Clean(p)
	if systemDirs[clean] {
		return true
	}
	for _, dir := range []string{"/bin/", "/boot/", "/etc/", "/lib/", "/lib64/", "/sbin/", "/usr/bin/", "/usr/sbin/", "/usr/lib/", "/System/", "/dev/", "/proc/", "/sys/"} {
		if strings.HasPrefix(clean+"/", dir) {
			return true
		}
	}
	return false
}

// isBroadPath reports whether a deletion target covers the filesystem root, a home
// directory, the current tree, or a top-level directory.
func isBroadPath(p string) bool {
	trimmed := strings.TrimSpace(p)
	switch trimmed {
	case "", "*", ".", "..", "./", "../", "./*", "../*", "~", "~/", "~/*", ".*":
		return true
	}
	if strings.HasPrefix(trimmed, "~") && strings.Count(strings.Trim(trimmed, "/"), "/") == 0 {
		return true
	}
	if strings.HasPrefix(trimmed, "/") {
		clean := path.Clean(trimmed)
		if clean == "/" || systemDirs[clean] || strings.HasPrefix(clean, "/*") {
			return true
		}
		if strings.Count(clean, "/") == 1 {
			return true
		}
		if strings.HasSuffix(clean, "/*") && strings.Count(clean, "/") <= 2 {
			return true
		}
	}
	return isSystemPath(trimmed)
}
