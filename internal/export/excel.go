package export

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/spigell/cv-screener/internal/screening"
)

const (
	RankingSheet = "Ranking"
	JobSheet     = "Vaga"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Excel ignores hyperlinks with longer targets.
const maxLinkLength = 2079

const ellipsis = "..."

var rankingHeaders = []string{"Posição", "Nome", "Score", "Justificativa", "URL"}

// WriteXLSX renders the ranked results, and the job spec when set, as a workbook.
func WriteXLSX(w io.Writer, results screening.ResultSet, job screening.JobSpec) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", RankingSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := writeRanking(f, results); err != nil {
		return fmt.Errorf("ranking sheet: %w", err)
	}

	if !job.IsEmpty() {
		if _, err := f.NewSheet(JobSheet); err != nil {
			return fmt.Errorf("create job sheet: %w", err)
		}
		if err := writeJob(f, job); err != nil {
			return fmt.Errorf("job sheet: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

type styles struct {
	header   int
	high     int
	medium   int
	low      int
	degraded int
	link     int
	label    int
}

func cellStyle(color string) *excelize.Style {
	return &excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	}
}

func newStyles(f *excelize.File) (styles, error) {
	header := cellStyle("4472C4")
	header.Font = &excelize.Font{Bold: true, Color: "FFFFFF"}
	header.Alignment = &excelize.Alignment{Horizontal: "center", Vertical: "center"}

	link := cellStyle("FFFFFF")
	link.Font = &excelize.Font{Color: "0563C1", Underline: "single"}

	label := &excelize.Style{Font: &excelize.Font{Bold: true}, Alignment: &excelize.Alignment{Vertical: "top"}}

	var s styles
	for _, def := range []struct {
		dst   *int
		style *excelize.Style
	}{
		{&s.header, header},
		{&s.high, cellStyle("C6EFCE")},
		{&s.medium, cellStyle("FFEB9C")},
		{&s.low, cellStyle("FFC7CE")},
		{&s.degraded, cellStyle("D9D9D9")},
		{&s.link, link},
		{&s.label, label},
	} {
		id, err := f.NewStyle(def.style)
		if err != nil {
			return styles{}, err
		}
		*def.dst = id
	}
	return s, nil
}

func (s styles) forRecord(rec screening.ScoreRecord) int {
	switch {
	case rec.Degraded:
		return s.degraded
	case rec.Score >= 70:
		return s.high
	case rec.Score >= 40:
		return s.medium
	default:
		return s.low
	}
}

func writeRanking(f *excelize.File, results screening.ResultSet) error {
	st, err := newStyles(f)
	if err != nil {
		return err
	}

	if err := f.SetSheetRow(RankingSheet, "A1", &rankingHeaders); err != nil {
		return err
	}
	if err := f.SetCellStyle(RankingSheet, "A1", "E1", st.header); err != nil {
		return err
	}

	for i, rec := range results {
		row := i + 2
		first, _ := excelize.CoordinatesToCellName(1, row)
		last, _ := excelize.CoordinatesToCellName(len(rankingHeaders), row)

		values := []any{i + 1, cellText(rec.Name), rec.Score, cellText(rec.Justification), cellText(rec.URL)}
		if err := f.SetSheetRow(RankingSheet, first, &values); err != nil {
			return err
		}
		if err := f.SetCellStyle(RankingSheet, first, last, st.forRecord(rec)); err != nil {
			return err
		}

		if isLink(rec.URL) {
			if err := f.SetCellHyperLink(RankingSheet, last, rec.URL, "External"); err != nil {
				return err
			}
			if err := f.SetCellStyle(RankingSheet, last, last, st.link); err != nil {
				return err
			}
		}
	}

	for col, width := range map[string]float64{"A": 10, "B": 28, "C": 8, "D": 80, "E": 40} {
		if err := f.SetColWidth(RankingSheet, col, col, width); err != nil {
			return err
		}
	}

	return f.SetPanes(RankingSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writeJob(f *excelize.File, job screening.JobSpec) error {
	st, err := newStyles(f)
	if err != nil {
		return err
	}

	rows := [][2]string{
		{"Título", job.Title},
		{"Grau de escolaridade", job.Education},
		{"Tempo de experiência", job.Experience},
		{"Conhecimentos obrigatórios", strings.Join(job.Required, ", ")},
		{"Conhecimentos desejados", strings.Join(job.Desired, ", ")},
		{"Observações", job.Notes},
	}

	for i, r := range rows {
		row := i + 1
		label, _ := excelize.CoordinatesToCellName(1, row)
		value, _ := excelize.CoordinatesToCellName(2, row)
		if err := f.SetCellValue(JobSheet, label, r[0]); err != nil {
			return err
		}
		if err := f.SetCellValue(JobSheet, value, cellText(r[1])); err != nil {
			return err
		}
		if err := f.SetCellStyle(JobSheet, label, label, st.label); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(JobSheet, "A", "A", 30); err != nil {
		return err
	}
	return f.SetColWidth(JobSheet, "B", "B", 80)
}

func isLink(url string) bool {
	if len(url) > maxLinkLength {
		return false
	}
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

// cellText cuts s to the number of characters a cell can hold.
func cellText(s string) string {
	if utf8.RuneCountInString(s) <= excelize.TotalCellChars {
		return s
	}
	runes := []rune(s)
	return string(runes[:excelize.TotalCellChars-len(ellipsis)]) + ellipsis
}
