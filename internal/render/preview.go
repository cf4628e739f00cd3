package render

import (
	"bytes"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	md_html "github.com/gomarkdown/markdown/html"
)

// PreviewHTML renders an artifact for the preview pane. The artifact is
// emitted as one preformatted block, so the pane shows exactly the text that
// is copied and sent. User text is escaped and never parsed as markdown.
func PreviewHTML(artifact string) []byte {
	block := &ast.CodeBlock{}
	block.Literal = markdown.NormalizeNewlines([]byte(artifact))

	doc := &ast.Document{}
	ast.AppendChild(doc, block)

	opts := md_html.RendererOptions{
		Flags: md_html.CommonFlags | md_html.SkipHTML,
	}

	var buf bytes.Buffer
	buf.WriteString(`<div class="preview-message">`)
	buf.Write(markdown.Render(doc, md_html.NewRenderer(opts)))
	buf.WriteString(`</div>`)
	return buf.Bytes()
}
