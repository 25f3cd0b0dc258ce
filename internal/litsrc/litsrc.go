// Package litsrc extracts grammar-DSL text from a literate markdown
// source file: a ".md" document whose fenced ```yalr code blocks hold the
// actual grammar statements, interleaved with prose documenting them.
// Grounded on fishi.go's fishiScanner, which does the same thing for its
// own DSL by walking a gomarkdown/markdown AST and pulling out fenced
// code blocks tagged with a matching info string.
package litsrc

import (
	"io"
	"os"
	"strings"

	"github.com/gomarkdown/markdown"
	mkast "github.com/gomarkdown/markdown/ast"
	mkparser "github.com/gomarkdown/markdown/parser"
)

// FenceTag is the code-fence info string that marks a block as grammar
// source rather than prose commentary.
const FenceTag = "yalr"

type blockScanner bool

func (s blockScanner) RenderNode(w io.Writer, node mkast.Node, entering bool) mkast.WalkStatus {
	if !entering {
		return mkast.GoToNext
	}
	block, ok := node.(*mkast.CodeBlock)
	if !ok || block == nil {
		return mkast.GoToNext
	}
	if strings.ToLower(strings.TrimSpace(string(block.Info))) != FenceTag {
		return mkast.GoToNext
	}
	w.Write(block.Literal)
	w.Write([]byte("\n"))
	return mkast.GoToNext
}

func (s blockScanner) RenderHeader(w io.Writer, node mkast.Node) {}
func (s blockScanner) RenderFooter(w io.Writer, node mkast.Node) {}

// Extract concatenates every ```yalr fenced code block in mdText, in
// document order, and returns the result as grammar-DSL source text.
func Extract(mdText []byte) []byte {
	doc := markdown.Parse(mdText, mkparser.New())
	var scanner blockScanner
	return markdown.Render(doc, scanner)
}

// IsLiterate reports whether filename's extension marks it as a literate
// markdown grammar source rather than a plain .yalr grammar file.
func IsLiterate(filename string) bool {
	lower := strings.ToLower(filename)
	return strings.HasSuffix(lower, ".md") || strings.HasSuffix(lower, ".markdown")
}

// ReadFile reads filename and, if it is a literate markdown source,
// extracts its fenced grammar blocks; otherwise it returns the file's
// contents unchanged.
func ReadFile(filename string) ([]byte, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	if !IsLiterate(filename) {
		return data, nil
	}
	return Extract(data), nil
}
