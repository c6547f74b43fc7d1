package scraper

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func mustDocument(t *testing.T, htmlText string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	require.NoError(t, err)
	return doc
}

func TestGridIndexRowspan(t *testing.T) {
	doc := mustDocument(t, `<table id="g">
	<tr><th>Time</th><th>Mon</th><th>Tue</th><th>Wed</th></tr>
	<tr><td id="t1" rowspan="2">9:00</td><td id="a" rowspan="3">A</td><td id="b">b</td><td id="c">c</td></tr>
	<tr><td id="d">d</td><td id="e">e</td></tr>
	<tr><td id="t2">10:00</td><td id="f">f</td><td id="g2">g</td></tr>
	<tr><td id="t3">11:00</td><td id="h">h</td><td id="i">i</td><td id="j">j</td></tr>
	</table>`)
	table := doc.Find("table#g")
	grid := newGridIndex(table)

	want := map[string]int{
		"t1": 0, "a": 1, "b": 2, "c": 3,
		"d": 2, "e": 3,
		"t2": 0, "f": 2, "g2": 3,
		"t3": 0, "h": 1, "i": 2, "j": 3,
	}
	for id, col := range want {
		got, ok := grid.column(table.Find("#" + id))
		require.True(t, ok, id)
		require.Equal(t, col, got, id)
	}

	_, ok := grid.column(doc.Find("th").First())
	require.False(t, ok)
}

func TestGridIndexColspan(t *testing.T) {
	doc := mustDocument(t, `<table id="g">
	<tr><th>Time</th><th>Mon</th><th>Tue</th><th>Wed</th></tr>
	<tr><td id="t1">9:00</td><td id="wide" colspan="2" rowspan="2">AB</td><td id="c">c</td></tr>
	<tr><td id="t2">10:00</td><td id="d">d</td></tr>
	</table>`)
	table := doc.Find("table#g")
	grid := newGridIndex(table)

	for id, col := range map[string]int{"t1": 0, "wide": 1, "c": 3, "t2": 0, "d": 3} {
		got, ok := grid.column(table.Find("#" + id))
		require.True(t, ok, id)
		require.Equal(t, col, got, id)
	}
}

func TestTextPieces(t *testing.T) {
	doc := mustDocument(t, `<span id="s">ROSE 5770 - -<br>Lecture<br/>
		18:30 - 21:15<br><a>Li Koon Chun</a> Hall LT1 </span>`)
	require.Equal(t,
		[]string{"ROSE 5770 - -", "Lecture", "18:30 - 21:15", "Li Koon Chun", "Hall LT1"},
		textPieces(doc.Find("#s")),
	)
}
