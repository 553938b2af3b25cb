package gemini

import (
	"errors"
	"testing"

	"github.com/spigell/cv-screener/internal/ai"
)

func TestParseResponseHandlesCodeBlock(t *testing.T) {
	t.Parallel()

	plain := `{"nome": "Ana", "score": 87, "justificativa": "Domina Go"}`
	fenced := "```json\n" + plain + "\n```"
	bare := "```\n" + plain + "\n```"

	want, err := ParseResponse(plain)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, raw := range []string{fenced, bare} {
		got, err := ParseResponse(raw)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", raw, err)
		}
		if got.Name != want.Name || got.Score != want.Score || got.Justification != want.Justification {
			t.Fatalf("fenced reply parsed differently: %+v vs %+v", got, want)
		}
	}

	if want.Name != "Ana" || want.Score != 87 || want.Justification != "Domina Go" {
		t.Fatalf("unexpected assessment: %+v", want)
	}
}

func TestParseResponseScores(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		score string
		want  int
	}{
		{name: "integer", score: `42`, want: 42},
		{name: "float rounds", score: `67.6`, want: 68},
		{name: "numeric string", score: `"75"`, want: 75},
		{name: "percent string", score: `"90%"`, want: 90},
		{name: "above range", score: `140`, want: 100},
		{name: "below range", score: `-3`, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			raw := `{"nome": "Ana", "score": ` + tt.score + `, "justificativa": "ok"}`
			got, err := ParseResponse(raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Score != tt.want {
				t.Fatalf("expected score %d, got %d", tt.want, got.Score)
			}
		})
	}
}

func TestParseResponseFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want ai.ParseErrorKind
	}{
		{name: "not json", raw: "Sorry, I cannot help with that.", want: ai.ParseErrorSyntax},
		{name: "truncated", raw: `{"nome": "Ana", "score": 5`, want: ai.ParseErrorSyntax},
		{name: "array", raw: `[{"nome": "Ana"}]`, want: ai.ParseErrorNotObject},
		{name: "missing nome", raw: `{"score": 10, "justificativa": "x"}`, want: ai.ParseErrorMissingKey},
		{name: "missing score", raw: `{"nome": "Ana", "justificativa": "x"}`, want: ai.ParseErrorMissingKey},
		{name: "missing justificativa", raw: `{"nome": "Ana", "score": 10}`, want: ai.ParseErrorMissingKey},
		{name: "word score", raw: `{"nome": "Ana", "score": "alto", "justificativa": "x"}`, want: ai.ParseErrorBadScore},
		{name: "null score", raw: `{"nome": "Ana", "score": null, "justificativa": "x"}`, want: ai.ParseErrorBadScore},
		{name: "bool score", raw: `{"nome": "Ana", "score": true, "justificativa": "x"}`, want: ai.ParseErrorBadScore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseResponse(tt.raw)
			if err == nil {
				t.Fatalf("expected error, got %+v", got)
			}
			if got != nil {
				t.Fatalf("expected no partial record, got %+v", got)
			}
			var pe *ai.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *ai.ParseError, got %T", err)
			}
			if pe.Kind != tt.want {
				t.Fatalf("expected kind %s, got %s (%v)", tt.want, pe.Kind, err)
			}
		})
	}
}

func TestParseResponseToleratesProse(t *testing.T) {
	t.Parallel()

	raw := "Segue a avaliação:\n{\"nome\": \"Ana\", \"score\": 55, \"justificativa\": \"ok\"}\nAtenciosamente."
	got, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Score != 55 {
		t.Fatalf("unexpected score %d", got.Score)
	}
}

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{in: "```json\n{}\n```", want: "{}"},
		{in: "```\n{\"a\":1}\n```\n", want: `{"a":1}`},
		{in: "  {\"a\":1}  ", want: `{"a":1}`},
		{in: "`{\"a\":1}`", want: `{"a":1}`},
	}

	for _, tt := range tests {
		if got := extractJSON(tt.in); got != tt.want {
			t.Fatalf("extractJSON(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}
