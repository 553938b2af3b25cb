package candidates

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/cv-screener/internal/screening"
)

const (
	DefaultFile      = "dados_extraidos.csv"
	DefaultSeparator = ';'
)

// ErrNotFound is returned when the candidate source does not exist.
var ErrNotFound = errors.New("candidate source not found")

// Source loads the candidate set for a run.
type Source interface {
	Load() (screening.CandidateSet, error)
}

// File reads candidates from a delimited file with a header row.
type File struct {
	Path      string
	Separator rune
}

func NewFile(path string, separator string) (*File, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultFile
	}

	sep := DefaultSeparator
	if separator != "" {
		r, size := utf8.DecodeRuneInString(separator)
		if r == utf8.RuneError || size != len(separator) {
			return nil, fmt.Errorf("separator must be a single character, got %q", separator)
		}
		sep = r
	}

	return &File{Path: path, Separator: sep}, nil
}

func (f *File) Load() (screening.CandidateSet, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, f.Path)
		}
		return nil, err
	}
	defer file.Close()

	sep := f.Separator
	if sep == 0 {
		sep = DefaultSeparator
	}

	return Parse(file, sep)
}

type row struct {
	Name       string            `mapstructure:"nome"`
	URL        string            `mapstructure:"url"`
	Attributes map[string]string `mapstructure:",remain"`
}

// Parse reads a delimited candidate table. Columns other than nome and url are kept as attributes.
func Parse(r io.Reader, separator rune) (screening.CandidateSet, error) {
	reader := csv.NewReader(r)
	reader.Comma = separator
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return screening.CandidateSet{}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make([]string, 0, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		columns = append(columns, h)
	}

	hasName := false
	for _, c := range columns {
		if c == screening.ColumnName {
			hasName = true
		}
	}
	if !hasName {
		return nil, fmt.Errorf("header has no %q column: %v", screening.ColumnName, columns)
	}

	ordered := nonEmpty(columns)
	set := make(screening.CandidateSet, 0)
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}

		if isBlank(record) {
			continue
		}

		values := make(map[string]any, len(columns))
		for i, c := range columns {
			if c == "" {
				continue
			}
			v := ""
			if i < len(record) {
				v = strings.TrimSpace(record[i])
			}
			values[c] = v
		}

		var decoded row
		if err := mapstructure.Decode(values, &decoded); err != nil {
			return nil, fmt.Errorf("decode line %d: %w", line, err)
		}

		if strings.TrimSpace(decoded.Name) == "" {
			return nil, fmt.Errorf("line %d: candidate %s is empty", line, screening.ColumnName)
		}

		if decoded.Attributes == nil {
			decoded.Attributes = map[string]string{}
		}

		set = append(set, screening.CandidateProfile{
			Name:       decoded.Name,
			URL:        decoded.URL,
			Attributes: decoded.Attributes,
			Columns:    ordered,
		})
	}

	return set, nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func nonEmpty(columns []string) []string {
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}
