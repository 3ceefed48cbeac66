package services

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/NaguKun/Analyseur-de-CV/internal/models"
)

func TestExportCandidates(t *testing.T) {
	ada := candidate(1, located("London"), withDegree("BSc"),
		worked(date(2020, 1, 1), date(2022, 1, 1)),
		worked(date(2022, 1, 1), nil))
	ada.FullName = "Ada Lovelace"
	ada.Skills = []models.Skill{{Name: "Go"}, {Name: "SQL"}}
	bob := candidate(2)
	bob.FullName = "Bob"

	var buf bytes.Buffer
	now := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, ExportCandidates(&buf, []models.Candidate{*ada, *bob}, now))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(candidatesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Years of Experience", rows[0][5])
	assert.Equal(t, []string{"1", "Ada Lovelace", ada.Email, "", "London", "3.0", "BSc", "Go, SQL"}, rows[1])
	assert.Equal(t, "Bob", rows[2][1])
	assert.Equal(t, "0.0", rows[2][5])

	exp, err := f.GetRows(experienceSheet)
	require.NoError(t, err)
	require.Len(t, exp, 3)
	assert.Equal(t, []string{"1", "Acme", "Engineer", "2020-01-01", "2022-01-01"}, exp[1][:5])
	assert.Equal(t, "Present", exp[2][4])
}

func TestExportCandidatesEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportCandidates(&buf, nil, time.Now()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{candidatesSheet, experienceSheet}, f.GetSheetList())
	rows, err := f.GetRows(candidatesSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
