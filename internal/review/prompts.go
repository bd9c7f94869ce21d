package review

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"scriptreview/internal/finding"
	"scriptreview/internal/pipeline"
	"scriptreview/internal/report"
	"scriptreview/internal/script"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var promptTemplates = template.Must(template.New("prompts").Funcs(template.FuncMap{
	"join": strings.Join,
	"add":  func(a, b int) int { return a + b },
}).ParseFS(promptFS, "prompts/*.tmpl"))

// System contexts sent with each stage's prompt.
const (
	legalSystem = "You are a media lawyer reviewing a true-crime documentary script before publication. " +
		"You identify statements that expose the producer to defamation, privacy, false light or " +
		"appropriation claims. You answer only with JSON."
	policySystem = "You are a trust-and-safety reviewer for video platforms. You identify content that " +
		"breaks community guidelines, needs an age restriction or loses monetization. You answer only with JSON."
	researchSystem = "You are a legal researcher. You summarise precedent and public court records relevant " +
		"to a documentary about a criminal case. You answer only with JSON."
	synthesisSystem = "You are the supervising counsel for a documentary production. You weigh the legal, " +
		"policy and research findings and give a publishing verdict. You answer only with JSON."
)

// promptData is the single input shape for every template.
type promptData struct {
	Script     *script.Script
	Numbered   string
	Meta       pipeline.CaseMetadata
	Research   *report.Research
	Flags      []finding.Normalized
	Legal      *report.Legal
	Policy     *report.Policy
	Merged     []finding.Merged
	Degraded   []string
	Categories []finding.Category
}

func renderPrompt(name string, data promptData) (string, error) {
	if data.Script != nil && data.Numbered == "" {
		data.Numbered = data.Script.Numbered()
	}
	var buf bytes.Buffer
	if err := promptTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
