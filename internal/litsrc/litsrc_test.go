package litsrc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const sampleDoc = `
# My grammar

Some prose explaining the terminals.

` + "```yalr" + `
term PLUS '+' ;
` + "```" + `

More prose.

` + "```yalr" + `
goal rule X { => PLUS ; }
` + "```" + `

` + "```text" + `
this block should not be extracted
` + "```" + `
`

func Test_Extract_concatenates_fenced_blocks_in_order(t *testing.T) {
	out := string(Extract([]byte(sampleDoc)))
	assert.Contains(t, out, "term PLUS '+' ;")
	assert.Contains(t, out, "goal rule X { => PLUS ; }")
	assert.NotContains(t, out, "should not be extracted")

	plusIdx := indexOf(out, "term PLUS")
	goalIdx := indexOf(out, "goal rule")
	assert.True(t, plusIdx >= 0 && goalIdx > plusIdx, "blocks should appear in document order")
}

func Test_IsLiterate_detects_markdown_extensions(t *testing.T) {
	assert.True(t, IsLiterate("grammar.md"))
	assert.True(t, IsLiterate("GRAMMAR.MARKDOWN"))
	assert.False(t, IsLiterate("grammar.yalr"))
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
