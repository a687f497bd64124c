package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractHTML flattens online-banking HTML exports: free text first, then one line per
// table row with cells joined by spaces.
func ExtractHTML(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, noscript").Remove()

	var rows []string
	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			if text := strings.Join(strings.Fields(cell.Text()), " "); text != "" {
				cells = append(cells, text)
			}
		})
		if len(cells) > 0 {
			rows = append(rows, strings.Join(cells, " "))
		}
	})
	doc.Find("table").Remove()

	var lines []string
	doc.Find("h1, h2, h3, h4, h5, h6, p, li, dt, dd, span, div").Each(func(_ int, s *goquery.Selection) {
		// Only leaf-ish nodes, otherwise container text is emitted twice.
		if s.Children().Length() > 0 {
			return
		}
		if text := strings.Join(strings.Fields(s.Text()), " "); text != "" {
			lines = append(lines, text)
		}
	})

	extractedText := cleanText(strings.Join(append(lines, rows...), "\n"))
	if extractedText == "" {
		return "", fmt.Errorf("no text could be extracted from HTML")
	}

	return extractedText, nil
}
