// Package rpn compiles a regex or literal-string pattern fragment into a
// postfix (reverse Polish) instruction stream, the intermediate form
// internal/automaton consumes to build an NFA. Ported from
// original_source's regex_parse.cpp, a recursive-descent parser producing
// the same opcode set.
package rpn

import (
	"fmt"

	"github.com/dekarrin/yalr/internal/diag"
	"github.com/dekarrin/yalr/internal/source"
	"golang.org/x/text/encoding/charmap"
)

// Opcode is one instruction in the postfix stream.
type Opcode int

const (
	Literal Opcode = iota // Op1 is the literal byte to match
	Range                 // Op1..Op2 inclusive is the byte range to match
	Concat                // pop two fragments, push their concatenation
	Join                  // pop two fragments, push their alternation (union)
	Close                 // pop one fragment, push its Kleene closure (zero or more), greedy
	NClose                // as Close, but non-greedy
	Plus                  // pop one fragment, push one-or-more
	NPlus                 // as Plus, but non-greedy
	Option                // pop one fragment, push zero-or-one
	NOption               // as Option, but non-greedy
	Empty                 // push a fragment matching the empty string
)

func (o Opcode) String() string {
	switch o {
	case Literal:
		return "literal"
	case Range:
		return "range"
	case Concat:
		return "concat"
	case Join:
		return "join"
	case Close:
		return "close"
	case NClose:
		return "nclose"
	case Plus:
		return "plus"
	case NPlus:
		return "nplus"
	case Option:
		return "option"
	case NOption:
		return "noption"
	case Empty:
		return "empty"
	default:
		return "unknown"
	}
}

// Instruction is one postfix operation. Op1/Op2 are only meaningful for
// Literal (Op1 only) and Range (Op1 = low, Op2 = high).
type Instruction struct {
	Op  Opcode
	Op1 byte
	Op2 byte
}

// Program is a compiled pattern: a postfix instruction stream that, read
// left to right with a stack machine, builds up one NFA fragment.
type Program []Instruction

// Mode selects whether Compile treats its input as a full regular expression
// or as a literal string to be matched byte-for-byte.
type Mode int

const (
	FullRegex Mode = iota
	SimpleString
)

// Compile parses the pattern text in frag according to mode, recording any
// problems on sink. It returns nil if parsing failed; partial output is
// never returned, matching original_source's regex2rpn contract.
func Compile(frag source.Fragment, mode Mode, sink *diag.Sink) Program {
	if !validateByteRange(frag, sink) {
		return nil
	}

	p := &parser{
		text:  frag.Bytes(),
		frag:  frag,
		sink:  sink,
		ok:    true,
		prog:  Program{},
	}
	if mode == SimpleString {
		p.parseString()
	} else {
		p.parseRegex()
		if p.pos != len(p.text) {
			p.errorf("unexpected character %q in pattern", p.text[p.pos])
		}
	}
	if !p.ok {
		return nil
	}
	return p.prog
}

// validateByteRange confirms frag's text never exceeds the documented 7-bit
// byte range (0x00-0x7F) a pattern is specified over. charmap.ISO8859_1 maps
// every byte 1:1 to its Unicode code point, so decoding through it and
// checking the resulting runes catches a pattern source file that turned
// out to be UTF-8 with multi-byte sequences rather than plain ASCII.
func validateByteRange(frag source.Fragment, sink *diag.Sink) bool {
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes([]byte(frag.Bytes()))
	if err != nil {
		sink.Errorf(frag, "pattern could not be decoded as single-byte text: %v", err)
		return false
	}
	for _, r := range string(decoded) {
		if r > 0x7F {
			sink.Errorf(frag, "pattern byte %#x is outside the supported 7-bit range", r)
			return false
		}
	}
	return true
}

type parser struct {
	text string
	pos  int
	frag source.Fragment
	sink *diag.Sink
	ok   bool
	prog Program
}

func (p *parser) errorf(format string, args ...interface{}) {
	p.sink.Errorf(p.frag, format, args...)
	p.ok = false
}

func (p *parser) emit(op Opcode, op1, op2 byte) {
	p.prog = append(p.prog, Instruction{Op: op, Op1: op1, Op2: op2})
}

func (p *parser) eof() bool {
	return p.pos >= len(p.text)
}

func (p *parser) peek() byte {
	return p.text[p.pos]
}

// ---- escape and shorthand-class tables, ported verbatim from
// original_source/src/lib/regex_parse.cpp ----

var escapeMap = map[byte]byte{
	'f': '\f',
	'n': '\n',
	'r': '\r',
	't': '\t',
	'v': '\v',
	'0': 0,
}

type byteRange struct{ lo, hi byte }

var classEscapeMap = map[byte][]byteRange{
	'd': {{'0', '9'}},
	'D': {{0, '0' - 1}, {'9' + 1, 0x7F}},
	's': {{'\t', '\r'}, {' ', ' '}},
	'S': {{0, '\t' - 1}, {'\r' + 1, ' ' - 1}, {' ' + 1, 0x7F}},
	'w': {{'0', '9'}, {'A', 'Z'}, {'a', 'z'}, {'_', '_'}},
	'W': {{0, '0' - 1}, {'9' + 1, 'A' - 1}, {'Z' + 1, '_' - 1}, {'_' + 1, 'a' - 1}, {'z' + 1, 0x7F}},
}

var dotRanges = []byteRange{
	{0, '\n' - 1},
	{'\n' + 1, 0x7F},
}

func (p *parser) addRanges(ranges []byteRange) {
	for i, r := range ranges {
		p.emit(Range, r.lo, r.hi)
		if i > 0 {
			p.emit(Join, 0, 0)
		}
	}
}

func (p *parser) parseHexEscape() byte {
	var value byte
	got := false
	for i := 0; i < 2 && !p.eof(); i++ {
		c := p.peek()
		var digit byte
		switch {
		case c >= '0' && c <= '9':
			digit = c - '0'
		case c >= 'A' && c <= 'F':
			digit = c - 'A' + 0xA
		case c >= 'a' && c <= 'f':
			digit = c - 'a' + 0xA
		default:
			i = 2 // stop, no increment of pos
			continue
		}
		value = value<<4 + digit
		p.pos++
		got = true
	}
	if !got {
		return 'x'
	}
	return value
}

func (p *parser) parseEscToRanges() []byteRange {
	p.pos++ // consume backslash
	if p.eof() {
		return []byteRange{{'\\', '\\'}}
	}
	c := p.peek()
	if mapped, ok := escapeMap[c]; ok {
		p.pos++
		return []byteRange{{mapped, mapped}}
	}
	if ranges, ok := classEscapeMap[c]; ok {
		p.pos++
		return ranges
	}
	if c == 'x' {
		p.pos++
		v := p.parseHexEscape()
		return []byteRange{{v, v}}
	}
	p.pos++
	return []byteRange{{c, c}}
}

func (p *parser) parseEsc() {
	p.addRanges(p.parseEscToRanges())
}

func (p *parser) parseDot() {
	p.pos++ // consume '.'
	p.addRanges(dotRanges)
}

func (p *parser) parseCharClass() {
	p.pos++ // consume '['

	negated := false
	if !p.eof() && p.peek() == '^' {
		negated = true
		p.pos++
	}

	var ranges []byteRange
	closeSeen := false
	for !p.eof() {
		c := p.peek()
		if c == ']' {
			closeSeen = true
			p.pos++
			break
		} else if c == '\\' {
			ranges = append(ranges, p.parseEscToRanges()...)
		} else {
			letter := c
			p.pos++
			if !p.eof() && p.peek() == '-' {
				p.pos++
				if p.eof() {
					p.errorf("char class: dangling '-' in range")
					return
				}
				endLetter := p.peek()
				p.pos++
				// original_source requires end > start strictly; spec.md
				// requires only lo <= hi, so single-character ranges
				// (a-a) are accepted here (DESIGN.md item 5).
				if endLetter < letter {
					p.errorf("char class: invalid range - end must not be smaller than start")
					return
				}
				ranges = append(ranges, byteRange{letter, endLetter})
			} else {
				ranges = append(ranges, byteRange{letter, letter})
			}
		}
	}

	if !closeSeen {
		p.errorf("missing ']' closing a character class")
		return
	}
	if len(ranges) == 0 {
		p.errorf("empty character class not supported")
		return
	}

	if negated {
		ranges = negateRanges(ranges)
		if len(ranges) == 0 {
			p.errorf("char class negation leaves no matchable characters")
			return
		}
	}

	p.addRanges(ranges)
}

// negateRanges computes the complement of the given (possibly overlapping,
// unsorted) ranges within 0x00-0x7F. original_source reads the '^' flag
// but never applies it (DESIGN.md item 4); this port applies it correctly.
func negateRanges(ranges []byteRange) []byteRange {
	var covered [128]bool
	for _, r := range ranges {
		for b := int(r.lo); b <= int(r.hi) && b <= 0x7F; b++ {
			covered[b] = true
		}
	}
	var out []byteRange
	start := -1
	for b := 0; b <= 0x7F; b++ {
		if !covered[b] {
			if start == -1 {
				start = b
			}
		} else if start != -1 {
			out = append(out, byteRange{byte(start), byte(b - 1)})
			start = -1
		}
	}
	if start != -1 {
		out = append(out, byteRange{byte(start), 0x7F})
	}
	return out
}

func (p *parser) parseAtom() bool {
	if p.eof() {
		return false
	}
	c := p.peek()
	switch c {
	case '(':
		p.parseParens()
	case '|', ')':
		return false
	case '\\':
		p.parseEsc()
	case '.':
		p.parseDot()
	case '[':
		p.parseCharClass()
	default:
		p.emit(Literal, c, 0)
		p.pos++
	}
	return true
}

func (p *parser) parseParens() {
	if p.eof() || p.peek() != '(' {
		p.errorf("internal error: not positioned at opening parenthesis")
		return
	}
	p.pos++
	p.parseRegex()
	if p.eof() || p.peek() != ')' {
		p.errorf("expecting closing parenthesis")
		return
	}
	p.pos++
}

var modifierOps = map[byte]bool{'*': true, '+': true, '?': true}

func (p *parser) parseItem() bool {
	if !p.parseAtom() {
		return false
	}
	if p.eof() {
		return true
	}
	c := p.peek()
	if !modifierOps[c] {
		return true
	}
	p.pos++
	minimal := false
	if !p.eof() && p.peek() == '?' {
		minimal = true
		p.pos++
	}
	switch c {
	case '*':
		if minimal {
			p.emit(NClose, 0, 0)
		} else {
			p.emit(Close, 0, 0)
		}
	case '?':
		if minimal {
			p.emit(NOption, 0, 0)
		} else {
			p.emit(Option, 0, 0)
		}
	case '+':
		if minimal {
			p.emit(NPlus, 0, 0)
		} else {
			p.emit(Plus, 0, 0)
		}
	}
	return true
}

// parseAlternate compiles one branch of an alternation. A branch that
// contributes no atoms - the missing side of "a|" or "|a", explicitly
// required valid by spec.md §4.2 - still has to leave exactly one fragment
// on the stack for parseRegex's Join, so it emits an Empty instruction
// rather than nothing at all.
func (p *parser) parseAlternate() {
	onFirst := true
	for !p.eof() {
		c := p.peek()
		if c == '|' || c == ')' {
			break
		}
		if !p.parseItem() {
			break
		}
		if onFirst {
			onFirst = false
		} else {
			p.emit(Concat, 0, 0)
		}
	}
	if onFirst {
		p.emit(Empty, 0, 0)
	}
}

func (p *parser) parseRegex() {
	p.parseAlternate()
	if p.eof() {
		return
	}
	switch p.peek() {
	case '|':
		p.pos++
		p.parseRegex()
		p.emit(Join, 0, 0)
	case ')':
		return
	default:
		p.errorf("unexpected character %q", p.peek())
	}
}

func (p *parser) parseString() {
	first := true
	for !p.eof() {
		p.emit(Literal, p.peek(), 0)
		if !first {
			p.emit(Concat, 0, 0)
		}
		first = false
		p.pos++
	}
}

// String renders a Program in the same "opcode operand operand" debug shape
// original_source's dump_list produces.
func (prog Program) String() string {
	out := ""
	for _, inst := range prog {
		switch inst.Op {
		case Literal:
			out += fmt.Sprintf("litrl  %q\n", rune(inst.Op1))
		case Range:
			out += fmt.Sprintf("range  %q, %q\n", rune(inst.Op1), rune(inst.Op2))
		default:
			out += inst.Op.String() + "\n"
		}
	}
	return out
}
