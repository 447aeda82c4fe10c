package plugins

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/doeshing/dexter/internal/domain"
)

// Whisper transcribes speech with whisper.cpp.
type Whisper struct{}

var (
	whisperFormats = map[string]string{"txt": "-otxt", "srt": "-osrt", "vtt": "-ovtt", "json": "-oj"}
	whisperLang    = regexp.MustCompile(`^(auto|[a-z]{2,3})$`)
)

func (Whisper) Capability() domain.PluginCapability {
	return domain.PluginCapability{
		ID:       "whisper",
		Summary:  "Transcribe speech in an audio file to text or subtitles.",
		Binaries: []string{"whisper-cli"},
		Params: []domain.ParamSpec{
			{Name: "model", Required: true, Description: "path to a ggml model file"},
			{Name: "input", Required: true, Description: "audio file (16 kHz WAV works everywhere)"},
			{Name: "format", Description: "txt (default), srt, vtt or json"},
			{Name: "language", Description: "spoken language code or auto"},
			{Name: "output", Description: "output file path without extension"},
		},
		InstallHint: "brew install whisper-cpp",
	}
}

func (Whisper) Build(params domain.Parameters) (domain.CandidateCommand, error) {
	const id = "whisper"
	model, err := operand(id, "model", params.String("model"))
	if err != nil {
		return domain.CandidateCommand{}, err
	}
	input, err := operand(id, "input", params.String("input"))
	if err != nil {
		return domain.CandidateCommand{}, err
	}

	format := strings.ToLower(params.String("format"))
	if format == "" {
		format = "txt"
	}
	formatFlag, ok := whisperFormats[format]
	if !ok {
		return domain.CandidateCommand{}, domain.Invalidf(id, "unsupported output format %q", format)
	}

	argv := []string{"whisper-cli", "-m", model, "-f", input}
	if lang := strings.ToLower(params.String("language")); lang != "" {
		if !whisperLang.MatchString(lang) {
			return domain.CandidateCommand{}, domain.Invalidf(id, "invalid language %q", lang)
		}
		argv = append(argv, "-l", lang)
	}
	argv = append(argv, formatFlag)
	if params.Has("output") {
		out, err := operand(id, "output", params.String("output"))
		if err != nil {
			return domain.CandidateCommand{}, err
		}
		argv = append(argv, "-of", out)
	}

	return render(id, argv, fmt.Sprintf("Transcribe %s to %s", input, format))
}
