package scraper

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitClassCode(t *testing.T) {
	cases := []struct {
		code    string
		subject string
		catalog string
		section string
	}{
		{"ROSE5720", "ROSE", "5720", ""},
		{"ROSE5720-", "ROSE", "5720", "-"},
		{"MATH1010A", "MATH", "1010", "A"},
		{"CSCI3100 B-", "CSCI", "3100", "B"},
		{"CS202", "CS", "202", ""},
		{"CHLL1900", "CHLL", "1900", ""},
		{" UGEA1000 ", "UGEA", "1000", ""},
		{"12345", "", "12345", ""},
		{"rose5720", "", "rose5720", ""},
	}
	for _, test := range cases {
		subject, catalog, section := SplitClassCode(test.code)
		require.Equal(t, test.subject, subject, test.code)
		require.Equal(t, test.catalog, catalog, test.code)
		require.Equal(t, test.section, section, test.code)
	}
}

func TestParseCourseLine(t *testing.T) {
	cases := []struct {
		line    string
		subject string
		catalog string
		section string
	}{
		{"ROSE 5770 - -", "ROSE", "5770", ""},
		{"CSCI 3100 - A", "CSCI", "3100", "A"},
		{"PHYS 1110 – -", "PHYS", "1110", ""},
		{"MATH1010", "MATH", "1010", ""},
		{"Seminar", "", "Seminar", ""},
	}
	for _, test := range cases {
		subject, catalog, section := parseCourseLine(test.line)
		require.Equal(t, test.subject, subject, test.line)
		require.Equal(t, test.catalog, catalog, test.line)
		require.Equal(t, test.section, section, test.line)
	}
}

func TestInferSubjects(t *testing.T) {
	subjects := InferSubjects([]string{"ROSE5720", "9578", "rose5730", "CSCI 3100", "ROSEMARY", "", "MATH1010A"})
	require.Equal(t, []string{"ROSE", "CSCI", "MATH"}, subjects)

	require.Empty(t, InferSubjects([]string{"9578", "1234"}))
}
