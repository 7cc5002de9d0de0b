// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docs

import (
	"fmt"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
)

var (
	scriptRe = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRe  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	blankRe  = regexp.MustCompile(`\n{3,}`)
)

// Converter turns HTML documents into Markdown so the knowledge base indexes
// text instead of markup.
type Converter struct {
	converter *md.Converter
}

// NewConverter returns a GitHub-flavored HTML to Markdown converter.
func NewConverter() *Converter {
	c := md.NewConverter("", true, nil)
	c.Use(plugin.GitHubFlavored())
	return &Converter{converter: c}
}

// Convert transforms HTML content to Markdown. Script and style blocks are
// dropped before conversion and runs of blank lines are collapsed after.
func (c *Converter) Convert(src []byte) ([]byte, error) {
	cleaned := scriptRe.ReplaceAllString(string(src), "")
	cleaned = styleRe.ReplaceAllString(cleaned, "")

	out, err := c.converter.ConvertString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("converting HTML: %w", err)
	}

	out = blankRe.ReplaceAllString(out, "\n\n")
	return []byte(strings.TrimSpace(out) + "\n"), nil
}

// IsHTML reports whether a relative path names an HTML document.
func IsHTML(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".html") || strings.HasSuffix(lower, ".htm")
}
