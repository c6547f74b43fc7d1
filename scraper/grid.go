package scraper

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// gridIndex maps every data cell of a table to the logical column it
// occupies once rowspan and colspan reservations of earlier cells are
// accounted for. The header row is not indexed.
type gridIndex struct {
	columns map[*html.Node]int
}

func newGridIndex(table *goquery.Selection) gridIndex {
	idx := gridIndex{columns: map[*html.Node]int{}}
	// column -> rows still reserved by a rowspan from an earlier row
	reserved := map[int]int{}

	table.Find("tr").Each(func(rowIdx int, row *goquery.Selection) {
		if rowIdx == 0 {
			return
		}
		col := 0
		row.ChildrenFiltered("td").Each(func(_ int, cell *goquery.Selection) {
			for reserved[col] > 0 {
				col++
			}
			idx.columns[cell.Get(0)] = col

			rowspan := spanAttr(cell, "rowspan")
			colspan := spanAttr(cell, "colspan")
			for c := col; c < col+colspan; c++ {
				if rowspan > 1 {
					// +1 because this row's own decrement happens below
					reserved[c] = rowspan
				}
			}
			col += colspan
		})
		for c, remaining := range reserved {
			if remaining <= 1 {
				delete(reserved, c)
				continue
			}
			reserved[c] = remaining - 1
		}
	})
	return idx
}

// column returns the logical column of cell, or false for a cell that does
// not belong to the indexed table.
func (g gridIndex) column(cell *goquery.Selection) (int, bool) {
	if cell.Length() == 0 {
		return 0, false
	}
	col, ok := g.columns[cell.Get(0)]
	return col, ok
}

func spanAttr(s *goquery.Selection, attr string) int {
	v, ok := s.Attr(attr)
	if !ok {
		return 1
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// textPieces returns the trimmed, non-empty text nodes under s in document
// order. Line breaks and inline elements both separate pieces.
func textPieces(s *goquery.Selection) []string {
	var pieces []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			for _, line := range strings.Split(normalizeSpace(n.Data), "\n") {
				if line = strings.TrimSpace(line); line != "" {
					pieces = append(pieces, line)
				}
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return pieces
}

// nbsp is what &nbsp; decodes to. Go's \s does not match it.
var nbspReplacer = strings.NewReplacer("\u00a0", " ")

func normalizeSpace(text string) string {
	return nbspReplacer.Replace(text)
}

// joinedText joins the text pieces of s with sep.
func joinedText(s *goquery.Selection, sep string) string {
	return strings.Join(textPieces(s), sep)
}
