// Package mdsnippet finds LaTeX fences in Markdown and renders an HTML
// preview with each fence replaced by its image.
package mdsnippet

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// ErrHTMLRender indicates the preview could not be rendered.
var ErrHTMLRender = errors.New("HTML preview rendering failed")

// DefaultStyle is the chroma style for non-LaTeX fences in the preview.
const DefaultStyle = "github"

// languages are the fence info words treated as LaTeX snippets.
var languages = map[string]bool{"latex": true, "tex": true}

// pageTemplate wraps goldmark's fragment output in a complete HTML5 document.
const pageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
img.texsnap { display: block; margin: 1em 0; max-width: 100%%; }
pre.texsnap-error { color: #b00020; white-space: pre-wrap; }
</style>
</head>
<body>
%s
</body>
</html>`

// Snippet is one LaTeX fence.
type Snippet struct {
	Index int               // position among the document's snippets
	Line  int               // 1-based line of the first body line
	Body  string            // fence content
	Attrs map[string]string // key=value words after the language, e.g. passes=2
}

// Int returns the integer attribute key, or def when absent or malformed.
func (s Snippet) Int(key string, def int) int {
	v, ok := s.Attrs[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Outcome is the result of rendering one snippet.
type Outcome struct {
	Image []byte // PNG; nil on failure
	Error string
}

// Document is a parsed Markdown source.
type Document struct {
	source   []byte
	snippets []Snippet
}

// Parse reads Markdown and collects its LaTeX fences in document order.
// Empty fences are skipped.
func Parse(source []byte) *Document {
	d := &Document{source: source}
	root := newMarkdown(DefaultStyle, nil).Parser().Parse(text.NewReader(source))
	for _, fcb := range latexFences(root, source) {
		body := fenceBody(fcb, source)
		if strings.TrimSpace(body) == "" {
			continue
		}
		d.snippets = append(d.snippets, Snippet{
			Index: len(d.snippets),
			Line:  lineOf(source, fcb.Lines().At(0).Start),
			Body:  body,
			Attrs: fenceAttrs(fcb, source),
		})
	}
	return d
}

// Snippets returns the LaTeX fences of the document.
func (d *Document) Snippets() []Snippet {
	return d.snippets
}

// HTMLOptions control RenderHTML.
type HTMLOptions struct {
	Title string
	Style string // chroma style for other fences; empty means DefaultStyle
}

// RenderHTML writes a standalone page where each snippet is replaced by its
// outcome, keyed by Snippet.Index. Snippets without an outcome are kept as
// plain, unhighlighted code in a <pre class="texsnap-pending"> block.
// Other fences are highlighted with inline styles so the page is self-contained.
func (d *Document) RenderHTML(w io.Writer, outcomes map[int]Outcome, opts HTMLOptions) error {
	style := opts.Style
	if style == "" {
		style = DefaultStyle
	}
	md := newMarkdown(style, outcomes)

	root := md.Parser().Parse(text.NewReader(d.source))
	index := 0
	for _, fcb := range latexFences(root, d.source) {
		if strings.TrimSpace(fenceBody(fcb, d.source)) == "" {
			continue
		}
		node := &outcomeNode{index: index}
		if _, ok := outcomes[index]; !ok {
			node.pending = true
			node.body = fenceBody(fcb, d.source)
		}
		fcb.Parent().ReplaceChild(fcb.Parent(), fcb, node)
		index++
	}

	var buf bytes.Buffer
	if err := md.Renderer().Render(&buf, d.source, root); err != nil {
		return fmt.Errorf("%w: %v", ErrHTMLRender, err)
	}
	title := opts.Title
	if title == "" {
		title = "texsnap preview"
	}
	_, err := fmt.Fprintf(w, pageTemplate, util.EscapeHTML([]byte(title)), buf.String())
	return err
}

func newMarkdown(style string, outcomes map[int]Outcome) goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle(style),
				highlighting.WithFormatOptions(chromahtml.WithClasses(false)),
			),
		),
		goldmark.WithRendererOptions(
			renderer.WithNodeRenderers(util.Prioritized(&outcomeRenderer{outcomes: outcomes}, 100)),
		),
	)
}

func latexFences(root ast.Node, source []byte) []*ast.FencedCodeBlock {
	var fences []*ast.FencedCodeBlock
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fcb, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		if languages[strings.ToLower(string(fcb.Language(source)))] && fcb.Lines().Len() > 0 {
			fences = append(fences, fcb)
		}
		return ast.WalkSkipChildren, nil
	})
	return fences
}

func fenceBody(fcb *ast.FencedCodeBlock, source []byte) string {
	var b strings.Builder
	lines := fcb.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	return b.String()
}

func fenceAttrs(fcb *ast.FencedCodeBlock, source []byte) map[string]string {
	if fcb.Info == nil {
		return nil
	}
	words := strings.Fields(string(fcb.Info.Segment.Value(source)))
	if len(words) < 2 {
		return nil
	}
	attrs := make(map[string]string, len(words)-1)
	for _, w := range words[1:] {
		if k, v, ok := strings.Cut(w, "="); ok && k != "" {
			attrs[k] = v
		}
	}
	return attrs
}

func lineOf(source []byte, offset int) int {
	return bytes.Count(source[:offset], []byte("\n")) + 1
}

var kindOutcome = ast.NewNodeKind("TexsnapOutcome")

// outcomeNode stands in for a rendered fence.
type outcomeNode struct {
	ast.BaseBlock
	index   int
	pending bool   // no outcome: show body as code
	body    string // fence content, set when pending
}

func (n *outcomeNode) Kind() ast.NodeKind { return kindOutcome }

func (n *outcomeNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Index": strconv.Itoa(n.index)}, nil)
}

type outcomeRenderer struct {
	outcomes map[int]Outcome
}

func (r *outcomeRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(kindOutcome, r.render)
}

func (r *outcomeRenderer) render(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*outcomeNode)
	if n.pending {
		_, _ = fmt.Fprintf(w, "<pre class=\"texsnap-pending\"><code class=\"language-latex\">%s</code></pre>\n", util.EscapeHTML([]byte(n.body)))
		return ast.WalkSkipChildren, nil
	}
	out := r.outcomes[n.index]
	if out.Image == nil {
		_, _ = fmt.Fprintf(w, "<pre class=\"texsnap-error\">snippet %d: %s</pre>\n", n.index+1, util.EscapeHTML([]byte(out.Error)))
		return ast.WalkSkipChildren, nil
	}
	_, _ = fmt.Fprintf(w, "<img class=\"texsnap\" alt=\"snippet %d\" src=\"data:image/png;base64,%s\" />\n",
		n.index+1, base64.StdEncoding.EncodeToString(out.Image))
	return ast.WalkSkipChildren, nil
}
