package gemini

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	_ "embed"

	"github.com/spigell/cv-screener/internal/screening"
)

//go:embed prompt.md
var promptTemplate string

const fallbackTemplate = "Vaga:\n{{JOB_JSON}}\n\nCandidato:\n{{CANDIDATE_TEXT}}\n\n" +
	`Responda apenas com um objeto JSON com as chaves "nome", "score" (0-100) e "justificativa".`

// BuildPrompt renders the evaluation prompt for a job and candidate. Output is deterministic.
func BuildPrompt(job screening.JobSpec, candidate screening.CandidateProfile) (string, error) {
	jobJSON, err := marshalJob(job)
	if err != nil {
		return "", fmt.Errorf("marshal job spec: %w", err)
	}

	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = fallbackTemplate
	}

	prompt := strings.ReplaceAll(template, "{{JOB_JSON}}", jobJSON)
	prompt = strings.ReplaceAll(prompt, "{{CANDIDATE_TEXT}}", candidateText(candidate))
	return prompt, nil
}

func marshalJob(job screening.JobSpec) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(job); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// candidateText dumps every known candidate column, in source order, one per line.
func candidateText(c screening.CandidateProfile) string {
	columns := c.Columns
	if len(columns) == 0 {
		columns = defaultColumns(c)
	}

	var b strings.Builder
	for _, column := range columns {
		fmt.Fprintf(&b, "%s: %s\n", column, c.Value(column))
	}
	return strings.TrimRight(b.String(), "\n")
}

func defaultColumns(c screening.CandidateProfile) []string {
	extra := make([]string, 0, len(c.Attributes))
	for k := range c.Attributes {
		extra = append(extra, k)
	}
	sort.Strings(extra)

	return append([]string{screening.ColumnName, screening.ColumnURL}, extra...)
}
