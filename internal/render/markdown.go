package render

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdownInstance goldmark.Markdown
	markdownOnce     sync.Once
)

func markdown() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownInstance = goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.Footnote,
				extension.DefinitionList,
				extension.Typographer,
			),
			goldmark.WithRendererOptions(
				html.WithXHTML(),
				html.WithUnsafe(),
			),
		)
	})
	return markdownInstance
}

// renderMarkdown converts a Markdown document to XHTML.
func renderMarkdown(source string) (string, error) {
	var buf bytes.Buffer
	if err := markdown().Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return buf.String(), nil
}

// renderInline converts a single line of Markdown, dropping the paragraph wrapper.
func renderInline(source string) (string, error) {
	rendered, err := renderMarkdown(source)
	if err != nil {
		return "", err
	}
	rendered = strings.TrimRight(rendered, "\n")
	if inner, ok := strings.CutPrefix(rendered, "<p>"); ok {
		if inner, ok = strings.CutSuffix(inner, "</p>"); ok {
			return inner, nil
		}
	}
	return rendered, nil
}
