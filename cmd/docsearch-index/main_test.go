package main

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github/itish2003/docsearch/models"
)

func init() {
	color.NoColor = true
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, &models.IndexFolderReport{
		Attempted: 2,
		Indexed:   1,
		Failed:    1,
		Files: []models.FileStatus{
			{File: "a.pdf", DocID: "id-a"},
			{File: "b.pdf", Error: "pdf extraction failed: bad xref"},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "OK   a.pdf -> id-a")
	assert.Contains(t, out, "FAIL b.pdf: pdf extraction failed: bad xref")
	assert.Contains(t, out, "Indexed folder: 2 attempted, 1 indexed, 1 failed")
}

func TestPrintSearch(t *testing.T) {
	var buf bytes.Buffer
	printSearch(&buf, "cats", []string{"x", "y"})
	assert.Equal(t, "Query: cats\n 1. x\n 2. y\n", buf.String())

	buf.Reset()
	printSearch(&buf, "dogs", nil)
	assert.Equal(t, "Query: dogs\nNo documents found.\n", buf.String())
}

func TestCommandsRequireOneArgument(t *testing.T) {
	for _, name := range []string{"index", "watch", "search", "get"} {
		cmd, _, err := rootCmd.Find([]string{name})
		if assert.NoError(t, err, name) {
			assert.Error(t, cmd.Args(cmd, nil), name)
		}
	}
}
