package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Text_Pos(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		off     Offset
		expect  Pos
	}{
		{
			name:    "start of first line",
			content: "abc\ndef\n",
			off:     0,
			expect:  Pos{Line: 1, Col: 1},
		},
		{
			name:    "middle of first line",
			content: "abc\ndef\n",
			off:     2,
			expect:  Pos{Line: 1, Col: 3},
		},
		{
			name:    "start of second line",
			content: "abc\ndef\n",
			off:     4,
			expect:  Pos{Line: 2, Col: 1},
		},
		{
			name:    "last line with no trailing newline",
			content: "abc\ndef",
			off:     6,
			expect:  Pos{Line: 2, Col: 3},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			txt := New("test", tc.content)
			assert.Equal(t, tc.expect, txt.Pos(tc.off))
		})
	}
}

func Test_Text_Line(t *testing.T) {
	txt := New("test", "abc\ndef\nghi")
	assert.Equal(t, "def", txt.Line(5))
	assert.Equal(t, "ghi", txt.Line(9))
}

func Test_Fragment_String(t *testing.T) {
	txt := New("grammar.yalr", "term FOO 'foo\n")
	frag := Span(txt, 5, 8)
	assert.Equal(t, "grammar.yalr:1:6", frag.String())
}
