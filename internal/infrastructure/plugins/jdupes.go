package plugins

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/doeshing/dexter/internal/domain"
)

// JDupes finds duplicate files.
type JDupes struct{}

func (JDupes) Capability() domain.PluginCapability {
	return domain.PluginCapability{
		ID:       "jdupes",
		Summary:  "Find duplicate files, summarize them, or delete the extra copies.",
		Binaries: []string{"jdupes"},
		Params: []domain.ParamSpec{
			{Name: "paths", Required: true, Description: "directories to scan"},
			{Name: "action", Description: "scan (default), summarize or delete"},
			{Name: "recursive", Description: "descend into subdirectories"},
			{Name: "delete", Description: "must be true together with action=delete"},
			{Name: "no_prompt", Description: "must be true to delete without per-file prompts"},
		},
		InstallHint: "brew install jdupes or apt install jdupes",
	}
}

func (JDupes) Build(params domain.Parameters) (domain.CandidateCommand, error) {
	const id = "jdupes"
	paths := params.Strings("paths")
	if len(paths) == 0 {
		paths = params.Strings("path")
	}
	if len(paths) == 0 {
		return domain.CandidateCommand{}, domain.Invalidf(id, "at least one directory is required")
	}

	argv := []string{"jdupes"}
	if params.Bool("recursive") {
		argv = append(argv, "-r")
	}

	action := strings.ToLower(params.String("action"))
	switch action {
	case "", "scan", "list":
		action = "scan"
	case "summarize", "summary":
		action = "summarize"
		argv = append(argv, "-m")
	case "delete":
		if !params.Bool("delete") || !params.Bool("no_prompt") {
			return domain.CandidateCommand{}, domain.Invalidf(id, "deleting duplicates requires both delete and no_prompt to be set")
		}
		argv = append(argv, "-d", "-N")
	default:
		return domain.CandidateCommand{}, domain.Invalidf(id, "unsupported action %q", action)
	}

	for _, p := range paths {
		value, err := operand(id, "path", p)
		if err != nil {
			return domain.CandidateCommand{}, err
		}
		if clean := filepath.Clean(value); action == "delete" && (clean == "/" || clean == "~") {
			return domain.CandidateCommand{}, domain.Invalidf(id, "refusing to delete duplicates across %s", value)
		}
		argv = append(argv, value)
	}

	var summary string
	switch action {
	case "summarize":
		summary = "Summarize duplicate files in " + strings.Join(paths, ", ")
	case "delete":
		summary = "Delete duplicate files in " + strings.Join(paths, ", ") + ", keeping the first of each set"
	default:
		summary = fmt.Sprintf("List duplicate files in %s", strings.Join(paths, ", "))
	}
	return render(id, argv, summary)
}
