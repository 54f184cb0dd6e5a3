package util

import (
	"strings"

	"golang.org/x/net/html"
)

// TextOnly strips all markup from an HTML fragment, returning the
// concatenated text content. Used for changelog excerpts in listings.
func TextOnly(input string) string {

	tokenizer := html.NewTokenizerFragment(strings.NewReader(input), "body")

	var sb strings.Builder

	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			break // assuming tokenizer.Err() == io.EOF
		}
		if tt == html.TextToken {
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(strings.TrimSpace(string(tokenizer.Text())))
		}
	}

	return strings.TrimSpace(sb.String())
}
