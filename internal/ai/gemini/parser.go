package gemini

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spigell/cv-screener/internal/ai"
)

const (
	keyName          = "nome"
	keyScore         = "score"
	keyJustification = "justificativa"
)

// ParseResponse extracts an Assessment from a raw model reply.
// The reply may be wrapped in Markdown code fences. Score is rounded and clamped into [0,100].
func ParseResponse(raw string) (*ai.Assessment, error) {
	cleaned := extractJSON(raw)

	var payload any
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, &ai.ParseError{Kind: ai.ParseErrorSyntax, Err: err}
	}

	data, ok := payload.(map[string]any)
	if !ok {
		return nil, &ai.ParseError{Kind: ai.ParseErrorNotObject, Detail: fmt.Sprintf("got %T", payload)}
	}

	for _, key := range []string{keyName, keyScore, keyJustification} {
		if _, ok := data[key]; !ok {
			return nil, &ai.ParseError{Kind: ai.ParseErrorMissingKey, Detail: key}
		}
	}

	score, err := coerceScore(data[keyScore])
	if err != nil {
		return nil, &ai.ParseError{Kind: ai.ParseErrorBadScore, Err: err}
	}

	return &ai.Assessment{
		Name:          coerceString(data[keyName]),
		Score:         score,
		Justification: coerceString(data[keyJustification]),
		Raw:           raw,
	}, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```JSON")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.TrimSpace(strings.Trim(raw, "`"))

	// Tolerate prose around a single object.
	if !strings.HasPrefix(raw, "{") && !strings.HasPrefix(raw, "[") {
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start != -1 && end > start {
			raw = raw[start : end+1]
		}
	}

	return raw
}

func coerceScore(v any) (int, error) {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case string:
		trimmed := strings.TrimSuffix(strings.TrimSpace(val), "%")
		parsed, err := strconv.ParseFloat(strings.TrimSpace(trimmed), 64)
		if err != nil {
			return 0, fmt.Errorf("score %q is not numeric", val)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("score has unsupported type %T", v)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("score %v is not a finite number", f)
	}

	f = math.Max(0, math.Min(100, math.Round(f)))
	return int(f), nil
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
