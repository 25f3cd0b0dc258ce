package replcalc

import (
	"fmt"
	"strconv"

	"github.com/dekarrin/yalr/internal/analyzer"
	"github.com/dekarrin/yalr/internal/automaton"
	"github.com/dekarrin/yalr/internal/diag"
	"github.com/dekarrin/yalr/internal/emit"
	"github.com/dekarrin/yalr/internal/gramparse"
	"github.com/dekarrin/yalr/internal/lrtable"
	"github.com/dekarrin/yalr/internal/rpn"
	"github.com/dekarrin/yalr/internal/source"
	"github.com/dekarrin/yalr/internal/symbols"
)

// Engine owns one compiled calculator grammar: its analyzed symbol table,
// its SLR(1) table, a lexer DFA built from the same terminal patterns, and
// the emitted template-data tree built from both (kept only so a caller can
// prove the three pipeline stages agree with each other; nothing in Eval
// reads it back).
type Engine struct {
	g    *analyzer.Grammar
	tbl  *lrtable.Table
	dfa  *automaton.DFA
	data *emit.Data
	vars map[string]float64
}

// New compiles the embedded calculator grammar and returns a ready Engine.
// A non-nil error here means the embedded grammar itself is broken, which
// is a programming error in this package, not a user-facing condition.
func New() (*Engine, error) {
	txt := source.New("replcalc.yalr", grammarSource)
	sink := diag.NewSink()

	file := gramparse.Parse(txt, sink)
	if sink.HasErrors() {
		return nil, fmt.Errorf("replcalc: grammar failed to parse: %w", sink.Err())
	}

	g := analyzer.Analyze(file, sink)
	if !g.Success {
		return nil, fmt.Errorf("replcalc: grammar failed analysis: %w", sink.Err())
	}

	tbl := lrtable.Build(g, sink)
	if sink.HasErrors() {
		return nil, fmt.Errorf("replcalc: grammar produced an unresolved conflict: %w", sink.Err())
	}

	dfa, err := buildLexer(g, sink)
	if err != nil {
		return nil, err
	}

	data := emit.Build(g, tbl, emit.Header{Version: "replcalc"})

	return &Engine{g: g, tbl: tbl, dfa: dfa, data: data, vars: make(map[string]float64)}, nil
}

// buildLexer compiles every terminal and skip pattern in g into one
// automaton.DFA, the same way cmd/yalr's regexcheck mode builds one for a
// single lone pattern.
func buildLexer(g *analyzer.Grammar, sink *diag.Sink) (*automaton.DFA, error) {
	var patterns []automaton.Pattern
	for _, sym := range g.Symbols.All() {
		if sym.Kind != symbols.Terminal && sym.Kind != symbols.Skip {
			continue
		}
		if sym.PatternKind == symbols.PatternNone {
			continue // the synthetic "$" terminal carries no pattern
		}

		mode := rpn.FullRegex
		if sym.PatternKind == symbols.PatternString {
			mode = rpn.SimpleString
		}
		prog := rpn.Compile(sym.PatternAt, mode, sink)
		if sink.HasErrors() {
			return nil, fmt.Errorf("replcalc: pattern for %s failed to compile: %w", sym.Name, sink.Err())
		}
		patterns = append(patterns, automaton.Pattern{
			Symbol: sym.ID,
			Prog:   prog,
			Fold:   sym.Case == symbols.CaseFold,
		})
	}
	return automaton.BuildNFA(patterns).ToDFA(), nil
}

// Dump renders the emitted template-data tree's one-line summary, proving
// the table this Engine drives by hand is the same one internal/emit would
// hand off to a code generator.
func (e *Engine) Dump() string {
	return e.data.String()
}

// token is one lexed unit: the symbol it matched and, for NUM and IDENT, the
// matched text.
type token struct {
	symbol symbols.ID
	text   string
}

// lex splits line into a token stream terminated by the grammar's
// end-of-input symbol, discarding every Skip-kind match.
func (e *Engine) lex(line string) ([]token, error) {
	dollar, ok := e.g.Symbols.Find("$")
	if !ok {
		return nil, fmt.Errorf("replcalc: grammar has no end-of-input symbol")
	}

	var toks []token
	for pos := 0; pos < len(line); {
		matched, length, accepted := e.dfa.Match(line[pos:])
		if !matched || length == 0 {
			return nil, fmt.Errorf("replcalc: unrecognized input at %q", line[pos:])
		}
		sym := accepted[0]
		text := line[pos : pos+length]
		pos += length

		if s, ok := e.g.Symbols.FindID(sym); !ok || s.Kind != symbols.Skip {
			toks = append(toks, token{symbol: sym, text: text})
		}
	}
	toks = append(toks, token{symbol: dollar.ID})
	return toks, nil
}

// Eval lexes and parses one line of calculator input against the compiled
// table, evaluating its semantics as each production reduces, and returns
// the text the REPL should print for it (empty for a bare assignment).
func (e *Engine) Eval(line string) (string, error) {
	toks, err := e.lex(line)
	if err != nil {
		return "", err
	}

	states := []int{0}
	values := []value{{}}
	pos := 0

	for {
		state := states[len(states)-1]
		tok := toks[pos]
		act, ok := e.tbl.States[state].Actions[tok.symbol]
		if !ok {
			return "", fmt.Errorf("replcalc: unexpected %s in %q", e.symbolName(tok.symbol), line)
		}

		switch act.Type {
		case lrtable.ActionShift:
			states = append(states, act.State)
			values = append(values, e.tokenValue(tok))
			pos++

		case lrtable.ActionReduce:
			n := act.PopCount
			rhs := values[len(values)-n:]
			result, err := e.reduce(act.Prod, rhs)
			if err != nil {
				return "", err
			}
			states = states[:len(states)-n]
			values = values[:len(values)-n]

			prod := e.g.Productions[act.Prod]
			goTo, ok := e.tbl.States[states[len(states)-1]].Gotos[prod.Rule]
			if !ok {
				return "", fmt.Errorf("replcalc: no goto for %s after reducing production %d", e.symbolName(prod.Rule), act.Prod)
			}
			states = append(states, goTo)
			values = append(values, result)

		case lrtable.ActionAccept:
			return e.render(values[len(values)-1])

		default:
			return "", fmt.Errorf("replcalc: table error on %s in %q", e.symbolName(tok.symbol), line)
		}
	}
}

func (e *Engine) symbolName(id symbols.ID) string {
	if sym, ok := e.g.Symbols.FindID(id); ok {
		return sym.Name
	}
	return "?"
}

// tokenValue builds the semantic value a shifted terminal carries: the
// parsed number for NUM, the identifier name for IDENT, nothing for every
// other terminal.
func (e *Engine) tokenValue(tok token) value {
	switch e.symbolName(tok.symbol) {
	case "NUM":
		n, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return value{}
		}
		return numValue(n)
	case "IDENT":
		return nameValue(tok.text)
	default:
		return value{}
	}
}

// reduce computes the semantic value of one production's reduction, and
// performs the print/assignment side effects for the statement-level
// productions. It is matched by RHS shape rather than by production ID,
// since nothing upstream of this package guarantees a stable ID-to-shape
// mapping beyond "declaration order".
func (e *Engine) reduce(pid symbols.ProdID, rhs []value) (value, error) {
	prod := e.g.Productions[pid]
	rule, _ := e.g.Symbols.FindID(prod.Rule)
	names := make([]string, len(prod.RHS))
	for i, item := range prod.RHS {
		names[i] = e.symbolName(item.Symbol)
	}

	switch rule.Name {
	case "Stmt":
		switch {
		case len(names) == 3 && names[0] == "IDENT" && names[1] == "ASSIGN":
			n, err := rhs[2].resolve(e.vars)
			if err != nil {
				return value{}, err
			}
			e.vars[rhs[0].name] = n
			return value{}, nil
		case len(names) == 2 && names[0] == "PRINT" && names[1] == "IDENT":
			n, err := rhs[1].resolve(e.vars)
			if err != nil {
				return value{}, err
			}
			return numValue(n), nil
		default: // => Expr
			return rhs[0], nil
		}

	case "Expr":
		switch {
		case len(names) == 3 && names[1] == "PLUS":
			return binOp(rhs[0], rhs[2], e.vars, func(l, r float64) float64 { return l + r })
		case len(names) == 3 && names[1] == "MINUS":
			return binOp(rhs[0], rhs[2], e.vars, func(l, r float64) float64 { return l - r })
		case len(names) == 3 && names[1] == "STAR":
			return binOp(rhs[0], rhs[2], e.vars, func(l, r float64) float64 { return l * r })
		case len(names) == 3 && names[1] == "SLASH":
			return binOp(rhs[0], rhs[2], e.vars, func(l, r float64) float64 { return l / r })
		case len(names) == 3 && names[0] == "LPAREN":
			return rhs[1], nil
		default: // => NUM or => IDENT
			return rhs[0], nil
		}
	}

	return value{}, fmt.Errorf("replcalc: no semantics registered for %s -> %v", rule.Name, names)
}

func binOp(left, right value, vars map[string]float64, op func(l, r float64) float64) (value, error) {
	l, err := left.resolve(vars)
	if err != nil {
		return value{}, err
	}
	r, err := right.resolve(vars)
	if err != nil {
		return value{}, err
	}
	return numValue(op(l, r)), nil
}

// render formats the accepted statement's result for the REPL. An
// assignment's value carries no payload and prints nothing.
func (e *Engine) render(v value) (string, error) {
	if !v.valid {
		return "", nil
	}
	n, err := v.resolve(e.vars)
	if err != nil {
		return "", err
	}
	return formatNum(n), nil
}
