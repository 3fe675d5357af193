package output

// MarkdownRenderer interface - Output port
// Pure function from markdown text to sanitized HTML. Script injection must be neutralized.
type MarkdownRenderer interface {
	RenderSafe(text string) string
}
