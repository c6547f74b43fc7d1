package commands

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cuhk-timetable/config"
	"cuhk-timetable/scraper"
	"cuhk-timetable/timezone"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestReadSelection(t *testing.T) {
	input := `# classes for term 2
ROSE5720
9578   # tutorial

MATH1010A, CSCI3100
`
	ids, err := readSelection(strings.NewReader(input))
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"ROSE5720", "9578", "MATH1010A", "CSCI3100"}, ids); diff != "" {
		t.Fatal(diff)
	}
}

func TestSelectionSources(t *testing.T) {
	file := filepath.Join(t.TempDir(), "selected.txt")
	require.NoError(t, os.WriteFile(file, []byte("ROSE5730\nrose5720\n"), 0644))

	flags := extractFlags{selected: "ROSE5720, 9578", selectedFile: file}
	ids, err := flags.selection(config.Config{Selected: []string{"9578", "PHYS1001"}})
	require.NoError(t, err)
	require.Equal(t, []string{"ROSE5720", "9578", "ROSE5730", "PHYS1001"}, ids)

	_, err = (&extractFlags{selectedFile: filepath.Join(t.TempDir(), "missing.txt")}).selection(config.Config{})
	require.Error(t, err)
}

func TestOptions(t *testing.T) {
	c := config.Default()
	c.Term = config.Term{Start: "2026-01-05", End: "2026-04-18", Strict: true}
	c.SubjectHint = "ROSE"

	t.Run("config", func(t *testing.T) {
		opts, err := (&extractFlags{}).options(c)
		require.NoError(t, err)
		require.Equal(t, timezone.Date(2026, time.January, 5), opts.TermStart)
		require.Equal(t, timezone.Date(2026, time.April, 18), opts.TermEnd)
		require.Equal(t, "ROSE", opts.SubjectHint)
		require.True(t, opts.StrictTerm)
		require.Empty(t, opts.Selected)
	})

	t.Run("flags win", func(t *testing.T) {
		flags := &extractFlags{termEnd: "2026-04-30", subjectHint: "MATH", selected: "9578"}
		opts, err := flags.options(c)
		require.NoError(t, err)
		require.Equal(t, timezone.Date(2026, time.April, 30), opts.TermEnd)
		require.Equal(t, "MATH", opts.SubjectHint)
		require.Equal(t, []string{"9578"}, opts.Selected)
	})

	t.Run("malformed date", func(t *testing.T) {
		_, err := (&extractFlags{termStart: "5 Jan"}).options(c)
		require.ErrorContains(t, err, "term start")
	})

	t.Run("reversed", func(t *testing.T) {
		_, err := (&extractFlags{termStart: "2026-05-01"}).options(c)
		require.Error(t, err)
	})

	t.Run("empty config", func(t *testing.T) {
		opts, err := (&extractFlags{}).options(config.Config{})
		require.NoError(t, err)
		require.True(t, opts.TermStart.IsZero())
		require.False(t, opts.StrictTerm)
	})
}

func TestExtractPagesSkipsEmptySubjects(t *testing.T) {
	page := func(code, nbr string) string {
		return `<table id="gv_detail">
<tr><th>Class Code</th><th>Class Nbr</th><th>Course Title</th><th>Period</th><th>Room</th><th>Meeting Date</th><th>Instructor</th></tr>
<tr><td>` + code + `</td><td>` + nbr + `</td><td>Course</td><td>Mon 09:30 - 11:15</td><td>LSB LT1</td><td>12/01/2026 - 13/04/2026</td><td>Staff</td></tr>
</table>`
	}
	opts := scraper.Options{Selected: []string{"9578"}}

	records, err := extractPages(context.Background(), []string{page("ROSE5720-", "9578"), page("CSCI3100A", "1234")}, []string{"ROSE", "CSCI"}, opts)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "9578", records[0].ClassNumber)

	_, err = extractPages(context.Background(), []string{page("CSCI3100A", "1234")}, []string{"CSCI"}, opts)
	require.ErrorIs(t, err, scraper.ErrNoClassRows)
}

func TestVerbose(t *testing.T) {
	require.True(t, Verbose([]string{"schedule", "--verbose", "page.html"}))
	require.False(t, Verbose([]string{"schedule", "page.html"}))
}
