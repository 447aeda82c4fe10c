package router

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/doeshing/dexter/internal/domain"
)

const systemTemplate = `You are dexter, a cautious terminal copilot. You never write shell commands yourself.
Choose exactly one plugin from the list below and extract its parameters from the user's request,
or ask one clarifying question when a required parameter is missing or ambiguous.

Plugins:
{{range .Plugins}}- {{.ID}}: {{.Summary}}
{{range .Params}}    - {{.Name}}{{if .Required}} (required){{end}}: {{.Description}}
{{end}}{{end}}
Use paths exactly as they appear in the working directory listing.
Reply with a single JSON object and nothing else, in one of these shapes:
{"intent":"route","plugin":"<plugin id>","parameters":{},"confidence":0.9,"reasoning":"<one sentence>"}
{"intent":"clarify","plugin":"<best guess or empty>","question":"<question>","options":["<choice>"],"partial_fields":{}}
{"intent":"unresolved","reasoning":"<why no plugin fits>"}`

const userTemplate = `Working directory: {{.WorkingDir}}
{{if .Summary}}{{.Summary}}
{{else if .Files}}Entries:
{{range .Files}}- {{.Path}}{{if eq .Type "dir"}}/{{end}}
{{end}}{{else}}The directory is empty.
{{end}}
Request: {{.Utterance}}`

var (
	systemPrompt = template.Must(template.New("system").Parse(systemTemplate))
	userPrompt   = template.Must(template.New("user").Parse(userTemplate))
)

type systemData struct {
	Plugins []domain.PluginCapability
}

type userData struct {
	WorkingDir string
	Summary    string
	Files      []domain.FileInfo
	Utterance  string
}

// BuildPrompt renders the system and user messages for one routing call.
func BuildPrompt(rc domain.RoutingContext) (string, string, error) {
	listing := rc.Listing()
	system, err := execute(systemPrompt, systemData{Plugins: rc.Plugins()})
	if err != nil {
		return "", "", err
	}
	user, err := execute(userPrompt, userData{
		WorkingDir: listing.WorkingDir,
		Summary:    listing.Summary,
		Files:      listing.Files,
		Utterance:  strings.TrimSpace(rc.Utterance()),
	})
	if err != nil {
		return "", "", err
	}
	return system, user, nil
}

func execute(tmpl *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
