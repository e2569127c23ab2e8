// Package markdown flattens GitHub-flavoured markdown advisory text
// into plain text so descriptions from different feeds compare on equal
// footing.
package markdown

import (
	"bytes"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
)

var _ renderer.Renderer = &textRenderer{}

// textRenderer renders a goldmark AST as plain text: inline markup is
// dropped, block boundaries become newlines, code blocks keep their
// literal lines.
type textRenderer struct{}

func (r *textRenderer) AddOptions(...renderer.Option) {}

func (r *textRenderer) Render(w io.Writer, source []byte, n ast.Node) error {
	var buf bytes.Buffer
	err := ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		switch t := node.(type) {
		case *ast.Text:
			if entering {
				buf.Write(t.Segment.Value(source))
				if t.SoftLineBreak() || t.HardLineBreak() {
					buf.WriteByte(' ')
				}
			}
		case *ast.AutoLink:
			if entering {
				buf.Write(t.URL(source))
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				lines := node.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					buf.Write(seg.Value(source))
				}
				return ast.WalkSkipChildren, nil
			}
		default:
			if !entering && node.Type() == ast.TypeBlock {
				buf.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return err
	}
	_, err = w.Write(buf.Bytes())
	return err
}

// Plain converts a markdown document to plain text. Input that fails to
// convert is returned trimmed but otherwise verbatim; a degraded
// description still beats a dropped one.
func Plain(doc string) string {
	gm := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRenderer(&textRenderer{}),
	)
	var out bytes.Buffer
	if err := gm.Convert([]byte(doc), &out); err != nil {
		return strings.TrimSpace(doc)
	}
	return tidy(out.String())
}

// tidy trims line endings and collapses runs of blank lines left behind
// by nested block nodes.
func tidy(s string) string {
	lines := strings.Split(s, "\n")
	var kept []string
	blank := true
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			if !blank {
				kept = append(kept, "")
			}
			blank = true
			continue
		}
		kept = append(kept, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
