package plugins

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/doeshing/dexter/internal/domain"
)

// FFmpeg transcodes audio and video.
type FFmpeg struct{}

type container struct {
	video     map[string]bool // nil means the container holds no video
	audio     map[string]bool
	audioOnly bool
}

func set(values ...string) map[string]bool {
	out := make(map[string]bool, len(values))
	for _, v := range values {
		out[v] = true
	}
	return out
}

var (
	knownVideoCodecs = set("libx264", "libx265", "libvpx", "libvpx-vp9", "libaom-av1", "libsvtav1", "mpeg4", "prores_ks", "gif", "copy")
	knownAudioCodecs = set("aac", "libmp3lame", "libopus", "libvorbis", "flac", "alac", "pcm_s16le", "copy")

	containers = map[string]container{
		".mp4":  {video: set("libx264", "libx265", "mpeg4", "libaom-av1", "libsvtav1", "copy"), audio: set("aac", "libmp3lame", "alac", "flac", "libopus", "copy")},
		".m4v":  {video: set("libx264", "libx265", "mpeg4", "copy"), audio: set("aac", "alac", "copy")},
		".mov":  {video: set("libx264", "libx265", "mpeg4", "prores_ks", "copy"), audio: set("aac", "alac", "pcm_s16le", "copy")},
		".mkv":  {video: knownVideoCodecs, audio: knownAudioCodecs},
		".webm": {video: set("libvpx", "libvpx-vp9", "libaom-av1", "libsvtav1", "copy"), audio: set("libopus", "libvorbis", "copy")},
		".avi":  {video: set("mpeg4", "libx264", "copy"), audio: set("libmp3lame", "aac", "pcm_s16le", "copy")},
		".gif":  {video: set("gif"), audio: nil},
		".mp3":  {audio: set("libmp3lame", "copy"), audioOnly: true},
		".m4a":  {audio: set("aac", "alac", "copy"), audioOnly: true},
		".aac":  {audio: set("aac", "copy"), audioOnly: true},
		".wav":  {audio: set("pcm_s16le"), audioOnly: true},
		".flac": {audio: set("flac"), audioOnly: true},
		".ogg":  {audio: set("libvorbis", "libopus"), audioOnly: true},
		".opus": {audio: set("libopus"), audioOnly: true},
	}

	scalePattern = regexp.MustCompile(`^(-?\d+)[:x](-?\d+)$`)
)

func (FFmpeg) Capability() domain.PluginCapability {
	return domain.PluginCapability{
		ID:       "ffmpeg",
		Summary:  "Convert, transcode, resize or extract audio from video and audio files.",
		Binaries: []string{"ffmpeg"},
		Params: []domain.ParamSpec{
			{Name: "input", Required: true, Description: "source media file"},
			{Name: "output", Required: true, Description: "destination file; the extension selects the container"},
			{Name: "video_codec", Description: "e.g. libx264, libx265, libvpx-vp9, copy"},
			{Name: "audio_codec", Description: "e.g. aac, libmp3lame, libopus, copy"},
			{Name: "scale", Description: "WIDTH:HEIGHT, -2 keeps the aspect ratio"},
			{Name: "extract_audio", Description: "drop the video stream"},
		},
		InstallHint: "brew install ffmpeg or apt install ffmpeg",
	}
}

func (FFmpeg) Build(params domain.Parameters) (domain.CandidateCommand, error) {
	const id = "ffmpeg"
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

	ext := strings.ToLower(filepath.Ext(output))
	c, ok := containers[ext]
	if !ok {
		return domain.CandidateCommand{}, domain.Invalidf(id, "unsupported output container %q", ext)
	}

	videoCodec := strings.ToLower(params.String("video_codec"))
	audioCodec := strings.ToLower(params.String("audio_codec"))
	extractAudio := params.Bool("extract_audio") || c.audioOnly
	scale := params.String("scale")

	if videoCodec != "" && !knownVideoCodecs[videoCodec] {
		return domain.CandidateCommand{}, domain.Invalidf(id, "unknown video codec %q", videoCodec)
	}
	if audioCodec != "" && !knownAudioCodecs[audioCodec] {
		return domain.CandidateCommand{}, domain.Invalidf(id, "unknown audio codec %q", audioCodec)
	}
	if extractAudio && (videoCodec != "" || scale != "") {
		return domain.CandidateCommand{}, domain.Invalidf(id, "audio extraction cannot take a video codec or scale")
	}
	if extractAudio && c.audio == nil {
		return domain.CandidateCommand{}, domain.Invalidf(id, "a %s file cannot hold audio", ext)
	}
	if videoCodec != "" && !c.video[videoCodec] {
		return domain.CandidateCommand{}, domain.Invalidf(id, "video codec %s does not fit a %s container", videoCodec, ext)
	}
	if audioCodec != "" && !c.audio[audioCodec] {
		return domain.CandidateCommand{}, domain.Invalidf(id, "audio codec %s does not fit a %s container", audioCodec, ext)
	}
	if scale != "" && videoCodec == "copy" {
		return domain.CandidateCommand{}, domain.Invalidf(id, "scaling requires re-encoding, not copy")
	}

	argv := []string{"ffmpeg", "-hide_banner", "-n", "-i", input}
	if extractAudio {
		argv = append(argv, "-vn")
	}
	if videoCodec != "" {
		argv = append(argv, "-c:v", videoCodec)
	}
	if c.audio == nil {
		argv = append(argv, "-an")
	} else if audioCodec != "" {
		argv = append(argv, "-c:a", audioCodec)
	}
	if scale != "" {
		m := scalePattern.FindStringSubmatch(scale)
		if m == nil {
			return domain.CandidateCommand{}, domain.Invalidf(id, "scale must look like 1280:720 or 1280:-2, got %q", scale)
		}
		argv = append(argv, "-vf", fmt.Sprintf("scale=%s:%s", m[1], m[2]))
	}
	argv = append(argv, output)

	summary := fmt.Sprintf("Convert %s to %s", input, output)
	if extractAudio {
		summary = fmt.Sprintf("Extract audio from %s into %s", input, output)
	}
	return render(id, argv, summary)
}
