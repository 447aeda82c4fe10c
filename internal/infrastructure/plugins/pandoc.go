package plugins

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/doeshing/dexter/internal/domain"
)

// Pandoc converts between document formats.
type Pandoc struct{}

var (
	pandocFormat  = regexp.MustCompile(`^[a-z0-9_]+([+-][a-z0-9_]+)*$`)
	pdfEngines    = set("pdflatex", "xelatex", "lualatex", "tectonic", "wkhtmltopdf", "weasyprint", "typst")
	filterParams  = []string{"filter", "filters", "lua_filter", "lua_filters"}
	stdioOperands = set("-", "/dev/stdin", "/dev/stdout")
)

func (Pandoc) Capability() domain.PluginCapability {
	return domain.PluginCapability{
		ID:       "pandoc",
		Summary:  "Convert documents between formats such as Markdown, HTML, DOCX, EPUB and PDF.",
		Binaries: []string{"pandoc"},
		Params: []domain.ParamSpec{
			{Name: "input", Required: true, Description: "one or more source documents"},
			{Name: "output", Required: true, Description: "destination document"},
			{Name: "from", Description: "source format, e.g. markdown, docx"},
			{Name: "to", Description: "target format, e.g. html, pdf"},
			{Name: "standalone", Description: "produce a complete document with header and footer"},
			{Name: "toc", Description: "include a table of contents"},
			{Name: "pdf_engine", Description: "pdflatex, xelatex, lualatex, tectonic, wkhtmltopdf, weasyprint or typst"},
		},
		InstallHint: "brew install pandoc or apt install pandoc",
	}
}

func (Pandoc) Build(params domain.Parameters) (domain.CandidateCommand, error) {
	const id = "pandoc"
	for _, key := range filterParams {
		if params.Has(key) {
			return domain.CandidateCommand{}, domain.Invalidf(id, "filters are not supported")
		}
	}

	inputs := params.Strings("input")
	if len(inputs) == 0 {
		inputs = params.Strings("inputs")
	}
	if len(inputs) == 0 {
		return domain.CandidateCommand{}, domain.Invalidf(id, "input is required")
	}
	rawOutput := params.String("output")
	if rawOutput == "" {
		return domain.CandidateCommand{}, domain.Invalidf(id, "output is required")
	}
	if stdioOperands[rawOutput] {
		return domain.CandidateCommand{}, domain.Invalidf(id, "writing to stdout is not supported")
	}
	output, err := operand(id, "output", rawOutput)
	if err != nil {
		return domain.CandidateCommand{}, err
	}

	argv := []string{"pandoc"}
	for _, key := range []string{"from", "to"} {
		format := strings.ToLower(params.String(key))
		if format == "" {
			continue
		}
		if !pandocFormat.MatchString(format) {
			return domain.CandidateCommand{}, domain.Invalidf(id, "invalid %s format %q", key, format)
		}
		argv = append(argv, "--"+key+"="+format)
	}
	if params.Bool("standalone") {
		argv = append(argv, "--standalone")
	}
	if params.Bool("toc") {
		argv = append(argv, "--toc")
	}
	if engine := strings.ToLower(params.String("pdf_engine")); engine != "" {
		if !pdfEngines[engine] {
			return domain.CandidateCommand{}, domain.Invalidf(id, "unsupported pdf engine %q", engine)
		}
		argv = append(argv, "--pdf-engine="+engine)
	}
	argv = append(argv, "-o", output)

	for _, in := range inputs {
		if stdioOperands[in] {
			return domain.CandidateCommand{}, domain.Invalidf(id, "reading from stdin is not supported")
		}
		value, err := operand(id, "input", in)
		if err != nil {
			return domain.CandidateCommand{}, err
		}
		if filepath.Clean(value) == filepath.Clean(output) {
			return domain.CandidateCommand{}, domain.Invalidf(id, "output must differ from input")
		}
		argv = append(argv, value)
	}

	summary := fmt.Sprintf("Convert %s to %s", strings.Join(inputs, ", "), output)
	return render(id, argv, summary)
}
