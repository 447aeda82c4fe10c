package plugins

import (
	"fmt"
	"strings"

	"github.com/doeshing/dexter/internal/domain"
)

// FileOps covers the plain file operations: remove, move, copy and mkdir.
type FileOps struct{}

func (FileOps) Capability() domain.PluginCapability {
	return domain.PluginCapability{
		ID:       "fileops",
		Summary:  "Remove, move, copy or create files and directories by name.",
		Binaries: []string{"rm", "mv", "cp", "mkdir"},
		Params: []domain.ParamSpec{
			{Name: "operation", Required: true, Description: "remove, move, copy or mkdir"},
			{Name: "paths", Required: true, Description: "paths to operate on (sources for move and copy)"},
			{Name: "destination", Description: "target path for move and copy"},
			{Name: "recursive", Description: "include directory contents"},
		},
		InstallHint: "part of the base system (coreutils)",
	}
}

func (FileOps) Build(params domain.Parameters) (domain.CandidateCommand, error) {
	const id = "fileops"
	paths := params.Strings("paths")
	if len(paths) == 0 {
		paths = params.Strings("path")
	}
	if len(paths) == 0 {
		return domain.CandidateCommand{}, domain.Invalidf(id, "at least one path is required")
	}
	recursive := params.Bool("recursive")

	var argv []string
	var summary string
	switch op := strings.ToLower(params.String("operation")); op {
	case "remove", "delete", "rm":
		argv = []string{"rm"}
		if recursive {
			argv = append(argv, "-r", "-f")
		}
		argv = append(argv, "--")
		argv = append(argv, paths...)
		summary = "Remove " + strings.Join(paths, ", ")
		if recursive {
			summary += " and everything inside"
		}
	case "move", "rename", "mv":
		dest := params.String("destination")
		if dest == "" {
			return domain.CandidateCommand{}, domain.Invalidf(id, "move needs a destination")
		}
		argv = append([]string{"mv", "--"}, paths...)
		argv = append(argv, dest)
		summary = fmt.Sprintf("Move %s to %s", strings.Join(paths, ", "), dest)
	case "copy", "cp":
		dest := params.String("destination")
		if dest == "" {
			return domain.CandidateCommand{}, domain.Invalidf(id, "copy needs a destination")
		}
		argv = []string{"cp"}
		if recursive {
			argv = append(argv, "-R")
		}
		argv = append(argv, "--")
		argv = append(argv, paths...)
		argv = append(argv, dest)
		summary = fmt.Sprintf("Copy %s to %s", strings.Join(paths, ", "), dest)
	case "mkdir":
		argv = append([]string{"mkdir", "-p", "--"}, paths...)
		summary = "Create directory " + strings.Join(paths, ", ")
	case "":
		return domain.CandidateCommand{}, domain.Invalidf(id, "operation is required")
	default:
		return domain.CandidateCommand{}, domain.Invalidf(id, "unsupported operation %q", op)
	}
	return render(id, argv, summary)
}
