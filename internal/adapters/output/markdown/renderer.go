package markdown

import (
	"bytes"
	stdhtml "html"
	"strings"

	"ssec-chat/internal/ports/output"

	"github.com/microcosm-cc/bluemonday"
	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Compile-time check to ensure Renderer implements output.MarkdownRenderer
var _ output.MarkdownRenderer = (*Renderer)(nil)

// Renderer struct - GitHub-flavored markdown with line breaks, sanitized after rendering.
// Safe for concurrent use.
type Renderer struct {
	markdown goldmark.Markdown
	policy   *bluemonday.Policy
}

// NewRenderer creates the renderer once; it is reused for every entry
func NewRenderer() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
		),
	)

	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code", "pre")
	policy.AllowAttrs("checked", "disabled").OnElements("input")
	policy.AllowAttrs("type").Matching(bluemonday.Paragraph).OnElements("input")
	policy.RequireNoReferrerOnLinks(true)
	policy.AddTargetBlankToFullyQualifiedLinks(true)

	return &Renderer{markdown: md, policy: policy}
}

// RenderSafe renders text and strips anything executable. On a render failure the
// escaped source is returned so the entry still shows.
func (r *Renderer) RenderSafe(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(text), &buf); err != nil {
		logrus.Warnf("Markdown render failed, falling back to escaped text: %v", err)
		return "<p>" + stdhtml.EscapeString(text) + "</p>"
	}

	return r.policy.Sanitize(buf.String())
}
