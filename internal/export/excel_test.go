package export

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/spigell/cv-screener/internal/screening"
)

func TestWriteXLSX(t *testing.T) {
	results := screening.ResultSet{
		{Name: "Ana", Score: 88, Justification: "Domina Go", URL: "https://example.com/ana"},
		{Name: "Bruno", Score: 0, Justification: "Falha na chamada ao modelo (quota): 429", URL: screening.NotFoundURL, Degraded: true},
	}
	job := screening.JobSpec{Title: "Backend Dev", Required: []string{"Go", "SQL"}}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, results, job))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{RankingSheet, JobSheet}, f.GetSheetList())

	rows, err := f.GetRows(RankingSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, rankingHeaders, rows[0])
	assert.Equal(t, []string{"1", "Ana", "88", "Domina Go", "https://example.com/ana"}, rows[1])
	assert.Equal(t, "Bruno", rows[2][1])
	assert.Equal(t, screening.NotFoundURL, rows[2][4])

	linked, target, err := f.GetCellHyperLink(RankingSheet, "E2")
	require.NoError(t, err)
	assert.True(t, linked)
	assert.Equal(t, "https://example.com/ana", target)

	linked, _, err = f.GetCellHyperLink(RankingSheet, "E3")
	require.NoError(t, err)
	assert.False(t, linked)

	required, err := f.GetCellValue(JobSheet, "B4")
	require.NoError(t, err)
	assert.Equal(t, "Go, SQL", required)
}

func TestWriteXLSXEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, screening.ResultSet{}, screening.JobSpec{}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{RankingSheet}, f.GetSheetList())

	rows, err := f.GetRows(RankingSheet)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestWriteXLSXTruncatesOversizedCells(t *testing.T) {
	long := strings.Repeat("ã", excelize.TotalCellChars+500)
	results := screening.ResultSet{
		{Name: "Ana", Score: 70, Justification: long, URL: "https://example.com/" + strings.Repeat("a", maxLinkLength)},
	}
	job := screening.JobSpec{Title: "Backend Dev", Notes: long}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, results, job))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	just, err := f.GetCellValue(RankingSheet, "D2")
	require.NoError(t, err)
	assert.Equal(t, excelize.TotalCellChars, utf8.RuneCountInString(just))
	assert.True(t, strings.HasSuffix(just, ellipsis))

	linked, _, err := f.GetCellHyperLink(RankingSheet, "E2")
	require.NoError(t, err)
	assert.False(t, linked)

	notes, err := f.GetCellValue(JobSheet, "B6")
	require.NoError(t, err)
	assert.Equal(t, excelize.TotalCellChars, utf8.RuneCountInString(notes))
}
