package plugins

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/doeshing/dexter/internal/domain"
)

// YTDLP downloads media from web pages.
type YTDLP struct{}

var (
	ytFormat      = regexp.MustCompile(`^[A-Za-z0-9+/\[\]=*.,:_-]+$`)
	ytAudioFormat = set("best", "mp3", "m4a", "aac", "opus", "vorbis", "wav", "flac")
)

func (YTDLP) Capability() domain.PluginCapability {
	return domain.PluginCapability{
		ID:       "yt-dlp",
		Summary:  "Download video or audio from a web page URL.",
		Binaries: []string{"yt-dlp"},
		Params: []domain.ParamSpec{
			{Name: "url", Required: true, Description: "http or https page URL"},
			{Name: "format", Description: "yt-dlp format selector, e.g. bestvideo+bestaudio"},
			{Name: "audio_only", Description: "extract the audio track"},
			{Name: "audio_format", Description: "mp3, m4a, opus, wav, flac or best"},
			{Name: "output", Description: "output template, e.g. %(title)s.%(ext)s"},
			{Name: "playlist", Description: "download the whole playlist instead of one video"},
		},
		InstallHint: "brew install yt-dlp or pipx install yt-dlp",
	}
}

func (YTDLP) Build(params domain.Parameters) (domain.CandidateCommand, error) {
	const id = "yt-dlp"
	raw := params.String("url")
	if raw == "" {
		return domain.CandidateCommand{}, domain.Invalidf(id, "url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.CandidateCommand{}, domain.Invalidf(id, "url must be an http or https address: %s", raw)
	}

	argv := []string{"yt-dlp"}
	if params.Bool("playlist") {
		argv = append(argv, "--yes-playlist")
	} else {
		argv = append(argv, "--no-playlist")
	}
	if format := params.String("format"); format != "" {
		if !ytFormat.MatchString(format) {
			return domain.CandidateCommand{}, domain.Invalidf(id, "invalid format selector %q", format)
		}
		argv = append(argv, "-f", format)
	}
	audioFormat := strings.ToLower(params.String("audio_format"))
	if params.Bool("audio_only") || audioFormat != "" {
		argv = append(argv, "-x")
		if audioFormat != "" {
			if !ytAudioFormat[audioFormat] {
				return domain.CandidateCommand{}, domain.Invalidf(id, "unsupported audio format %q", audioFormat)
			}
			argv = append(argv, "--audio-format", audioFormat)
		}
	}
	if params.Has("output") {
		tmpl, err := operand(id, "output", params.String("output"))
		if err != nil {
			return domain.CandidateCommand{}, err
		}
		if filepath.IsAbs(tmpl) || strings.Contains(filepath.ToSlash(tmpl), "../") {
			return domain.CandidateCommand{}, domain.Invalidf(id, "output template must stay inside the working directory")
		}
		argv = append(argv, "-o", tmpl)
	}
	argv = append(argv, "--", u.String())

	for _, a := range argv {
		if strings.HasPrefix(a, "--exec") {
			return domain.CandidateCommand{}, domain.Invalidf(id, "--exec is not allowed")
		}
	}

	summary := fmt.Sprintf("Download %s", u.String())
	if hasArg(argv, "-x") {
		summary = fmt.Sprintf("Download the audio of %s", u.String())
	}
	return render(id, argv, summary)
}
