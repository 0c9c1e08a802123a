package renderer

import (
	"bytes"
	"fmt"

	chromahtml "github.com/alecthomas/chroma/formatters/html"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
)

// Markdown converts assistant text to HTML. Raw HTML in the source is passed
// through goldmark and then forced through a sanitizer whose allow-list
// mirrors what the persona invites the model to emit: b, i, br, code, pre,
// lists, and links. Everything else is stripped.
type Markdown struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewMarkdown builds the converter and its sanitization policy.
func NewMarkdown() *Markdown {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle("monokai"),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
			),
		),
		// Raw HTML passthrough is intentional; the sanitizer below is the
		// safety boundary.
		goldmark.WithRendererOptions(goldmarkhtml.WithUnsafe()),
	)

	policy := bluemonday.NewPolicy()
	policy.AllowElements("b", "strong", "i", "em", "br", "code", "pre", "ul", "ol", "li", "p")
	// span/class carry the syntax highlighting of fenced code blocks.
	policy.AllowElements("span")
	policy.AllowAttrs("class").OnElements("span", "code", "pre")
	policy.AllowStandardURLs()
	policy.AllowAttrs("href").OnElements("a")
	policy.RequireNoFollowOnLinks(true)

	return &Markdown{md: md, policy: policy}
}

// Render converts Markdown (with restricted raw HTML) to sanitized HTML.
func (m *Markdown) Render(content string) (string, error) {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(content), &buf); err != nil {
		return "", fmt.Errorf("error converting markdown: %w", err)
	}
	return m.policy.Sanitize(buf.String()), nil
}
