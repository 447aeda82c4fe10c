package plugins

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/doeshing/dexter/internal/domain"
)

// QPDF runs structural PDF transformations.
type QPDF struct{}

var (
	pageRange = regexp.MustCompile(`^(r?\d+|z)(-(r?\d+|z))?(,(r?\d+|z)(-(r?\d+|z))?)*(:(even|odd))?$`)

	qpdfBlockedFlags = []string{"--replace-input", "--allow-weak-crypto", "--allow-insecure"}
	qpdfExtraFlags   = set("--object-streams=generate", "--compress-streams=y", "--recompress-flate", "--deterministic-id", "--warning-exit-0")
)

func (QPDF) Capability() domain.PluginCapability {
	return domain.PluginCapability{
		ID:       "qpdf",
		Summary:  "Check, linearize, decrypt, encrypt (AES-256) or extract pages from PDF files.",
		Binaries: []string{"qpdf"},
		Params: []domain.ParamSpec{
			{Name: "operation", Required: true, Description: "check, linearize, decrypt, encrypt or pages"},
			{Name: "input", Required: true, Description: "source PDF"},
			{Name: "output", Description: "destination PDF (not used by check)"},
			{Name: "password", Description: "password of an encrypted input"},
			{Name: "user_password", Description: "encrypt: password required to open"},
			{Name: "owner_password", Description: "encrypt: password for full permissions"},
			{Name: "pages", Description: "page ranges such as 1-3,7 or z (last) for the pages operation"},
			{Name: "flags", Description: "optional extras: --object-streams=generate, --compress-streams=y, --recompress-flate, --deterministic-id"},
		},
		InstallHint: "brew install qpdf or apt install qpdf",
	}
}

func (QPDF) Build(params domain.Parameters) (domain.CandidateCommand, error) {
	const id = "qpdf"
	input, err := operand(id, "input", params.String("input"))
	if err != nil {
		return domain.CandidateCommand{}, err
	}

	var extras []string
	for _, flag := range params.Strings("flags") {
		for _, blocked := range qpdfBlockedFlags {
			if flag == blocked || strings.HasPrefix(flag, blocked+"=") {
				return domain.CandidateCommand{}, domain.Invalidf(id, "%s is not allowed", blocked)
			}
		}
		if !qpdfExtraFlags[flag] {
			return domain.CandidateCommand{}, domain.Invalidf(id, "unsupported flag %q", flag)
		}
		extras = append(extras, flag)
	}

	op := strings.ToLower(params.String("operation"))
	if op == "check" {
		argv := append([]string{"qpdf", "--check"}, input)
		return render(id, argv, "Check the structure of "+input)
	}

	output, err := operand(id, "output", params.String("output"))
	if err != nil {
		return domain.CandidateCommand{}, err
	}
	if filepath.Clean(input) == filepath.Clean(output) {
		return domain.CandidateCommand{}, domain.Invalidf(id, "output must differ from input; in-place rewrites are not allowed")
	}

	argv := []string{"qpdf"}
	var summary string
	switch op {
	case "linearize":
		argv = append(argv, "--linearize")
		argv = append(argv, extras...)
		argv = append(argv, input, output)
		summary = fmt.Sprintf("Linearize %s for fast web view into %s", input, output)
	case "decrypt":
		argv = append(argv, "--decrypt")
		if pw := params.String("password"); pw != "" {
			argv = append(argv, "--password="+pw)
		}
		argv = append(argv, extras...)
		argv = append(argv, input, output)
		summary = fmt.Sprintf("Remove encryption from %s into %s", input, output)
	case "encrypt":
		if bits := params.String("bits"); bits != "" && bits != "256" {
			return domain.CandidateCommand{}, domain.Invalidf(id, "only 256-bit encryption is supported")
		}
		user := params.String("user_password")
		owner := params.String("owner_password")
		if owner == "" {
			owner = user
		}
		if owner == "" {
			return domain.CandidateCommand{}, domain.Invalidf(id, "encrypt needs a user or owner password")
		}
		if strings.HasPrefix(user, "-") || strings.HasPrefix(owner, "-") {
			return domain.CandidateCommand{}, domain.Invalidf(id, "passwords must not start with '-'")
		}
		argv = append(argv, "--encrypt", user, owner, "256", "--")
		argv = append(argv, extras...)
		argv = append(argv, input, output)
		summary = fmt.Sprintf("Encrypt %s with AES-256 into %s", input, output)
	case "pages":
		pages := strings.ReplaceAll(params.String("pages"), " ", "")
		if pages == "" {
			return domain.CandidateCommand{}, domain.Invalidf(id, "pages needs a page range")
		}
		if !pageRange.MatchString(pages) {
			return domain.CandidateCommand{}, domain.Invalidf(id, "invalid page range %q", pages)
		}
		argv = append(argv, extras...)
		argv = append(argv, input, "--pages", ".", pages, "--", output)
		summary = fmt.Sprintf("Extract pages %s of %s into %s", pages, input, output)
	case "":
		return domain.CandidateCommand{}, domain.Invalidf(id, "operation is required")
	default:
		return domain.CandidateCommand{}, domain.Invalidf(id, "unsupported operation %q", op)
	}
	return render(id, argv, summary)
}
