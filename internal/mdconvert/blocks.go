package mdconvert

import (
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"
)

// Blocks parses md and returns its paragraphs, headings and code blocks in
// document order. Paragraphs nested in lists and quotes are returned as
// their own blocks; inline markup is dropped, literal text is kept.
func Blocks(md string) []Block {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	doc := markdown.Parse([]byte(md), p)

	var blocks []Block
	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		switch n := node.(type) {
		case *ast.CodeBlock:
			blocks = append(blocks, Block{
				Text:     strings.TrimRight(string(n.Literal), "\n"),
				Verbatim: true,
			})
			return ast.SkipChildren
		case *ast.Paragraph, *ast.Heading:
			if text := strings.TrimSpace(inlineText(n)); text != "" {
				blocks = append(blocks, Block{Text: text})
			}
			return ast.SkipChildren
		}
		return ast.GoToNext
	})
	return blocks
}

// JoinBlocks renders blocks back as plain Markdown paragraphs.
func JoinBlocks(blocks []Block) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if b.Verbatim {
			parts = append(parts, "```\n"+b.Text+"\n```")
			continue
		}
		parts = append(parts, b.Text)
	}
	return strings.Join(parts, "\n\n")
}

func inlineText(node ast.Node) string {
	var sb strings.Builder
	ast.WalkFunc(node, func(n ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		switch leaf := n.(type) {
		case *ast.Text:
			sb.Write(leaf.Literal)
		case *ast.Code:
			sb.Write(leaf.Literal)
		case *ast.Softbreak, *ast.Hardbreak:
			sb.WriteByte('\n')
		}
		return ast.GoToNext
	})
	return sb.String()
}
