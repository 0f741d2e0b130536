package scraper

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractText strips script and style elements from an HTML document and
// returns its visible text, one cleaned chunk per line. Each source line is
// trimmed, split on runs of double spaces, and empty chunks are dropped.
func ExtractText(html []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style").Remove()
	return cleanText(doc.Text()), nil
}

func cleanText(text string) string {
	var chunks []string
	for _, line := range strings.Split(text, "\n") {
		for _, phrase := range strings.Split(strings.TrimSpace(line), "  ") {
			if chunk := strings.TrimSpace(phrase); chunk != "" {
				chunks = append(chunks, chunk)
			}
		}
	}
	return strings.Join(chunks, "\n")
}
