package plugins

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/doeshing/dexter/internal/domain"
)

// OCRmyPDF adds a searchable text layer to scanned PDFs.
type OCRmyPDF struct{}

var ocrLanguages = regexp.MustCompile(`^[a-z_]{3,}(\+[a-z_]{3,})*$`)

func (OCRmyPDF) Capability() domain.PluginCapability {
	return domain.PluginCapability{
		ID:       "ocrmypdf",
		Summary:  "Run OCR on scanned PDFs to make them searchable.",
		Binaries: []string{"ocrmypdf"},
		Params: []domain.ParamSpec{
			{Name: "input", Required: true, Description: "scanned PDF or image"},
			{Name: "output", Required: true, Description: "destination PDF"},
			{Name: "language", Description: "tesseract language codes, e.g. eng or eng+deu"},
			{Name: "mode", Description: "default, force, skip or redo for pages that already have text"},
			{Name: "deskew", Description: "straighten crooked pages"},
			{Name: "rotate", Description: "auto-rotate pages by text orientation"},
			{Name: "sidecar", Description: "also write the recognized text to this file"},
		},
		InstallHint: "brew install ocrmypdf or apt install ocrmypdf",
	}
}

func (OCRmyPDF) Build(params domain.Parameters) (domain.CandidateCommand, error) {
	const id = "ocrmypdf"
	input, err := operand(id, "input", params.String("input"))
	if err != nil {
		return domain.CandidateCommand{}, err
	}
	output, err := operand(id, "output", params.String("output"))
	if err != nil {
		return domain.CandidateCommand{}, err
	}
	if filepath.Clean(input) == filepath.Clean(output) {
		return domain.CandidateCommand{}, domain.Invalidf(id, "output must differ from input")
	}

	mode, err := ocrMode(params)
	if err != nil {
		return domain.CandidateCommand{}, err
	}
	deskew := params.Bool("deskew")
	if mode == "redo" && deskew {
		return domain.CandidateCommand{}, domain.Invalidf(id, "redo mode cannot be combined with deskew")
	}

	argv := []string{"ocrmypdf"}
	if lang := strings.ToLower(params.String("language")); lang != "" {
		if !ocrLanguages.MatchString(lang) {
			return domain.CandidateCommand{}, domain.Invalidf(id, "invalid language %q", lang)
		}
		argv = append(argv, "-l", lang)
	}
	switch mode {
	case "force":
		argv = append(argv, "--force-ocr")
	case "redo":
		argv = append(argv, "--redo-ocr")
	default:
		argv = append(argv, "--skip-text")
	}
	if deskew {
		argv = append(argv, "--deskew")
	}
	if params.Bool("rotate") {
		argv = append(argv, "--rotate-pages")
	}
	if params.Has("sidecar") {
		sidecar, err := operand(id, "sidecar", params.String("sidecar"))
		if err != nil {
			return domain.CandidateCommand{}, err
		}
		argv = append(argv, "--sidecar", sidecar)
	}
	argv = append(argv, input, output)

	return render(id, argv, fmt.Sprintf("OCR %s into searchable %s", input, output))
}

// ocrMode merges the mode parameter with the boolean shorthands and refuses
// more than one distinct choice.
func ocrMode(params domain.Parameters) (string, error) {
	chosen := map[string]bool{}
	switch m := strings.ToLower(params.String("mode")); m {
	case "", "default":
	case "force", "force_ocr", "force-ocr":
		chosen["force"] = true
	case "skip", "skip_text", "skip-text":
		chosen["skip"] = true
	case "redo", "redo_ocr", "redo-ocr":
		chosen["redo"] = true
	default:
		return "", domain.Invalidf("ocrmypdf", "unknown mode %q", m)
	}
	for key, mode := range map[string]string{"force_ocr": "force", "skip_text": "skip", "redo_ocr": "redo"} {
		if params.Bool(key) {
			chosen[mode] = true
		}
	}
	if len(chosen) > 1 {
		return "", domain.Invalidf("ocrmypdf", "force, skip and redo modes are mutually exclusive")
	}
	for mode := range chosen {
		return mode, nil
	}
	return "", nil
}
