package plugins

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/doeshing/dexter/internal/domain"
)

// Vips resizes, rotates and flips images with libvips.
type Vips struct{}

var thumbnailSize = regexp.MustCompile(`^\d{1,5}(x\d{1,5})?$`)

func (Vips) Capability() domain.PluginCapability {
	return domain.PluginCapability{
		ID:       "vips",
		Summary:  "Create thumbnails, resize, rotate or flip images.",
		Binaries: []string{"vips", "vipsthumbnail"},
		Params: []domain.ParamSpec{
			{Name: "operation", Required: true, Description: "thumbnail, resize, rotate or flip"},
			{Name: "input", Required: true, Description: "source image"},
			{Name: "output", Required: true, Description: "destination image"},
			{Name: "size", Description: "thumbnail: WIDTH or WIDTHxHEIGHT bounding box"},
			{Name: "scale", Description: "resize: factor, e.g. 0.5"},
			{Name: "angle", Description: "rotate: 90, 180 or 270"},
			{Name: "direction", Description: "flip: horizontal or vertical"},
		},
		InstallHint: "brew install vips or apt install libvips-tools",
	}
}

func (Vips) Build(params domain.Parameters) (domain.CandidateCommand, error) {
	const id = "vips"
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
	if strings.Contains(output, "[") {
		return domain.CandidateCommand{}, domain.Invalidf(id, "output save options are not supported")
	}

	var argv []string
	var summary string
	switch op := strings.ToLower(params.String("operation")); op {
	case "thumbnail":
		size := strings.ToLower(params.String("size"))
		if size == "" {
			size = "256"
		}
		if !thumbnailSize.MatchString(size) {
			return domain.CandidateCommand{}, domain.Invalidf(id, "invalid thumbnail size %q", size)
		}
		argv = []string{"vipsthumbnail", input, "--size", size, "-o", output}
		summary = fmt.Sprintf("Create a %s thumbnail of %s as %s", size, input, output)
	case "resize":
		raw := params.String("scale")
		scale, err := strconv.ParseFloat(raw, 64)
		if err != nil || scale <= 0 || scale > 10 {
			return domain.CandidateCommand{}, domain.Invalidf(id, "scale must be a number between 0 and 10, got %q", raw)
		}
		argv = []string{"vips", "resize", input, output, strconv.FormatFloat(scale, 'f', -1, 64)}
		summary = fmt.Sprintf("Resize %s by %s into %s", input, strconv.FormatFloat(scale, 'f', -1, 64), output)
	case "rotate", "rot":
		angle := params.String("angle")
		if !oneOf(angle, "90", "180", "270") {
			return domain.CandidateCommand{}, domain.Invalidf(id, "angle must be 90, 180 or 270, got %q", angle)
		}
		argv = []string{"vips", "rot", input, output, "d" + angle}
		summary = fmt.Sprintf("Rotate %s by %s degrees into %s", input, angle, output)
	case "flip":
		direction := strings.ToLower(params.String("direction"))
		if direction == "" {
			direction = "horizontal"
		}
		if !oneOf(direction, "horizontal", "vertical") {
			return domain.CandidateCommand{}, domain.Invalidf(id, "direction must be horizontal or vertical, got %q", direction)
		}
		argv = []string{"vips", "flip", input, output, direction}
		summary = fmt.Sprintf("Flip %s %sly into %s", input, direction, output)
	case "":
		return domain.CandidateCommand{}, domain.Invalidf(id, "operation is required")
	default:
		return domain.CandidateCommand{}, domain.Invalidf(id, "unsupported operation %q", op)
	}
	return render(id, argv, summary)
}
