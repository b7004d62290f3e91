package main

import (
	"strings"
	"testing"

	"github.com/hakim/vulntriage/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs("instance", " 4, 7,,9 ")
	require.NoError(t, err)
	assert.Equal(t, []int{4, 7, 9}, ids)

	ids, err = parseIDs("instance", "")
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = parseIDs("instance", "4,x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid instance id "x"`)

	_, err = parseID("report", "0")
	assert.Error(t, err)
}

func TestConfirm(t *testing.T) {
	for input, want := range map[string]bool{
		"y\n":   true,
		"YES\n": true,
		"n\n":   false,
		"\n":    false,
		"":      false,
	} {
		got, err := confirm(strings.NewReader(input), "")
		require.NoError(t, err)
		assert.Equal(t, want, got, "input %q", input)
	}
}

func TestStripStatus(t *testing.T) {
	r := &models.Report{Vulnerabilities: []models.Vulnerability{{
		Instances: []models.Instance{{ID: 1, FixStatus: models.StatusFixed, FixedBy: "dana", FixedAt: "2026-01-01", FixNotes: "done"}},
	}}}

	stripStatus(r)

	inst := r.Vulnerabilities[0].Instances[0]
	assert.Equal(t, models.StatusPending, inst.FixStatus)
	assert.Empty(t, inst.FixedBy)
	assert.Empty(t, inst.FixedAt)
	assert.Empty(t, inst.FixNotes)
}

func TestSetupLogging(t *testing.T) {
	verbose = false
	setupLogging("serve")
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())

	setupLogging("reports")
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())

	verbose = true
	defer func() { verbose = false }()
	setupLogging("mcp")
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"init"}, {"serve"}, {"dashboard"}, {"reports"}, {"search"}, {"logs"}, {"import"}, {"mcp"},
		{"report", "show"}, {"report", "notes"}, {"report", "delete"}, {"report", "export"}, {"report", "diff"},
		{"status", "set"}, {"status", "batch"},
	} {
		cmd, _, err := rootCmd.Find(path)
		require.NoError(t, err, strings.Join(path, " "))
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestNormalizeActionType(t *testing.T) {
	assert.Equal(t, "STATUS", normalizeActionType("status"))
	assert.Equal(t, "IMPORT", normalizeActionType(" Import "))
	assert.Equal(t, "", normalizeActionType(""))
}
