package plugins

import (
	"fmt"
	"strings"

	"github.com/doeshing/dexter/internal/domain"
)

// F2 batch renames files with the f2 tool.
type F2 struct{}

func (F2) Capability() domain.PluginCapability {
	return domain.PluginCapability{
		ID:       "f2",
		Summary:  "Batch rename files and directories with find and replace or a regular expression.",
		Binaries: []string{"f2"},
		Params: []domain.ParamSpec{
			{Name: "find", Required: true, Description: "text or pattern to find in file names"},
			{Name: "replace", Description: "replacement text, empty to delete the match"},
			{Name: "paths", Description: "files or directories to rename in (default: current directory)"},
			{Name: "regex", Description: "treat find as a regular expression"},
			{Name: "recursive", Description: "descend into subdirectories"},
			{Name: "ignore_case", Description: "match case-insensitively"},
		},
		InstallHint: "brew install f2 or go install github.com/ayoisaiah/f2/v2/cmd/f2@latest",
	}
}

func (F2) Build(params domain.Parameters) (domain.CandidateCommand, error) {
	const id = "f2"
	find := params.String("find")
	if find == "" {
		return domain.CandidateCommand{}, domain.Invalidf(id, "find text is required")
	}
	replace := params.String("replace")
	if find == replace {
		return domain.CandidateCommand{}, domain.Invalidf(id, "find and replace are identical")
	}

	argv := []string{"f2", "-f", find, "-r", replace}
	if !params.Bool("regex") {
		argv = append(argv, "-s")
	}
	if params.Bool("recursive") {
		argv = append(argv, "-R")
	}
	if params.Bool("ignore_case") {
		argv = append(argv, "-i")
	}
	argv = append(argv, "-x")

	paths := params.Strings("paths")
	if len(paths) == 0 {
		paths = params.Strings("path")
	}
	for _, p := range paths {
		value, err := operand(id, "path", p)
		if err != nil {
			return domain.CandidateCommand{}, err
		}
		argv = append(argv, value)
	}

	where := "the current directory"
	if len(paths) > 0 {
		where = strings.Join(paths, ", ")
	}
	summary := fmt.Sprintf("Rename %q to %q in %s", find, replace, where)
	return render(id, argv, summary)
}
