package providers

import (
	"bytes"
	_ "embed"
	"text/template"
)

//go:embed templates/game_detection_system.tmpl
var gameDetectionSystem string

//go:embed templates/game_detection_user.tmpl
var gameDetectionUserTmpl string

//go:embed templates/category_hint_system.tmpl
var categoryHintSystem string

//go:embed templates/category_hint_user.tmpl
var categoryHintUserTmpl string

var (
	gameDetectionUser = template.Must(template.New("game_detection_user").Parse(gameDetectionUserTmpl))
	categoryHintUser  = template.Must(template.New("category_hint_user").Parse(categoryHintUserTmpl))
)

// SystemPrompt returns the system instruction for a prompt kind.
func SystemPrompt(kind PromptKind) string {
	if kind == PromptCategoryHint {
		return categoryHintSystem
	}
	return gameDetectionSystem
}

// UserPrompt renders the user message for a prompt kind and content sample.
func UserPrompt(kind PromptKind, sample string) string {
	tmpl := gameDetectionUser
	raw := gameDetectionUserTmpl
	if kind == PromptCategoryHint {
		tmpl = categoryHintUser
		raw = categoryHintUserTmpl
	}
	var buf bytes.Buffer
	data := struct{ Sample string }{Sample: sample}
	if err := tmpl.Execute(&buf, data); err != nil {
		return raw
	}
	return buf.String()
}
