package screening

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

const (
	// NotFoundURL is attached to records whose candidate has no source URL.
	NotFoundURL = "Não encontrada"

	MinScore = 0
	MaxScore = 100
)

// JobSpec describes the open position a run evaluates candidates against.
type JobSpec struct {
	Title      string   `json:"titulo,omitempty" yaml:"titulo" validate:"required,nonblank"`
	Education  string   `json:"grau_escolaridade,omitempty" yaml:"grau_escolaridade"`
	Experience string   `json:"tempo_experiencia,omitempty" yaml:"tempo_experiencia"`
	Required   []string `json:"conhecimentos_obrigatorios,omitempty" yaml:"conhecimentos_obrigatorios"`
	Desired    []string `json:"conhecimentos_desejados,omitempty" yaml:"conhecimentos_desejados"`
	Notes      string   `json:"observacoes,omitempty" yaml:"observacoes"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func jobValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
	})
	return validate
}

// Validate reports whether the spec is usable for an analysis run.
func (j JobSpec) Validate() error {
	if err := jobValidator().Struct(j); err != nil {
		var fields []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid job spec: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid job spec: %w", err)
	}
	return nil
}

func (j JobSpec) IsEmpty() bool {
	return strings.TrimSpace(j.Title) == "" &&
		j.Education == "" &&
		j.Experience == "" &&
		len(j.Required) == 0 &&
		len(j.Desired) == 0 &&
		j.Notes == ""
}

// CandidateProfile is one row of raw candidate data.
type CandidateProfile struct {
	Name       string
	URL        string
	Attributes map[string]string
	// Columns keeps the source column order, including name and url.
	Columns []string
}

// Value returns the raw value of a source column.
func (c CandidateProfile) Value(column string) string {
	switch column {
	case ColumnName:
		return c.Name
	case ColumnURL:
		return c.URL
	default:
		return c.Attributes[column]
	}
}

// SourceURL returns the candidate URL or NotFoundURL when it is blank.
func (c CandidateProfile) SourceURL() string {
	if u := strings.TrimSpace(c.URL); u != "" {
		return u
	}
	return NotFoundURL
}

const (
	ColumnName = "nome"
	ColumnURL  = "url"
)

type CandidateSet []CandidateProfile

func (s CandidateSet) Len() int {
	return len(s)
}

// Names lists candidate names in evaluation order.
func (s CandidateSet) Names() []string {
	names := make([]string, 0, len(s))
	for _, c := range s {
		names = append(names, c.Name)
	}
	return names
}

// ScoreRecord is the outcome of evaluating one candidate.
type ScoreRecord struct {
	Name          string `json:"nome"`
	Score         int    `json:"score"`
	Justification string `json:"justificativa"`
	URL           string `json:"url"`
	Degraded      bool   `json:"degradado,omitempty"`
}

type ResultSet []ScoreRecord

func (r ResultSet) Len() int {
	return len(r)
}

// Rank returns a copy sorted by descending score. Equal scores keep evaluation order.
func Rank(r ResultSet) ResultSet {
	ranked := make(ResultSet, len(r))
	copy(ranked, r)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

func ClampScore(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}
