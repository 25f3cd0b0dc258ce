/*
Yalr compiles a grammar DSL file into an SLR(1) parse table and a
target-agnostic code-emission data tree.

Usage:

	yalr [-o OUT] [-t FORMAT] [-S STATEFILE] [-a slr|regexcheck] [-d] INPUT

The flags are:

	-o, --output OUT
		Write the emitted template-data tree to OUT instead of stdout.

	-t, --format FORMAT
		Select how the template-data tree is rendered: "gostruct" (default,
		a Go-syntax dump) or "summary" (one-line overview).

	-S, --statefile STATEFILE
		Write a full human-readable dump of the generated parse states,
		productions, and conflicts to STATEFILE.

	-a, --algorithm ALGO
		"slr" (default) runs the full grammar-to-table-to-emission
		pipeline. "regexcheck" instead treats INPUT as a bare pattern
		fragment, compiles it, and reports match results for lines read
		from stdin, without requiring a grammar file.

	-d, --debug
		After the parse table is built, print each shift/reduce and
		reduce/reduce conflict it recorded, with the action kept, to stderr.

Exit codes: 0 success; 1 any error (parse, analysis, generation, I/O).
*/
package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/dekarrin/yalr/internal/analyzer"
	"github.com/dekarrin/yalr/internal/automaton"
	"github.com/dekarrin/yalr/internal/diag"
	"github.com/dekarrin/yalr/internal/emit"
	"github.com/dekarrin/yalr/internal/gramparse"
	"github.com/dekarrin/yalr/internal/litsrc"
	"github.com/dekarrin/yalr/internal/lrtable"
	"github.com/dekarrin/yalr/internal/rpn"
	"github.com/dekarrin/yalr/internal/source"
	"github.com/dekarrin/yalr/internal/symbols"
	"github.com/dekarrin/yalr/internal/util"
	"github.com/spf13/pflag"
)

var algorithms = []string{"slr", "regexcheck"}
var formats = []string{"gostruct", "summary"}

const (
	// ExitSuccess indicates a successful run.
	ExitSuccess = iota

	// ExitError indicates a parse, analysis, generation, or I/O failure.
	ExitError
)

var (
	returnCode  = ExitSuccess
	flagOutput  = pflag.StringP("output", "o", "", "write the emitted data tree here instead of stdout")
	flagFormat  = pflag.StringP("format", "t", "gostruct", "output rendering: gostruct or summary")
	flagState   = pflag.StringP("statefile", "S", "", "write a full state/conflict dump here")
	flagAlgo    = pflag.StringP("algorithm", "a", "slr", "slr or regexcheck")
	flagDebug   = pflag.BoolP("debug", "d", false, "trace resolved shift/reduce and reduce/reduce conflicts")
)

func main() {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			panic(fmt.Sprintf("unrecoverable panic occurred: %v", panicErr))
		} else {
			os.Exit(returnCode)
		}
	}()

	pflag.Parse()

	if pflag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "ERROR: exactly one INPUT argument is required")
		returnCode = ExitError
		return
	}
	input := pflag.Arg(0)

	switch *flagAlgo {
	case "regexcheck":
		runRegexCheck(input)
	case "slr":
		runSLR(input)
	default:
		fmt.Fprintf(os.Stderr, "ERROR: unknown algorithm %q (want %s)\n", *flagAlgo, util.MakeTextList(algorithms))
		returnCode = ExitError
	}
}

func runSLR(input string) {
	data, err := litsrc.ReadFile(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = ExitError
		return
	}

	txt := source.New(input, string(data))
	sink := diag.NewSink()

	file := gramparse.Parse(txt, sink)
	if sink.HasErrors() {
		reportAndFail(sink)
		return
	}

	g := analyzer.Analyze(file, sink)
	if !g.Success {
		reportAndFail(sink)
		return
	}

	tbl := lrtable.Build(g, sink)
	if *flagDebug {
		for _, c := range tbl.Conflicts {
			fmt.Fprintf(os.Stderr, "debug: %s conflict in state %d resolved to %s\n", c.Kind, c.State, c.Chosen)
		}
	}
	if sink.HasErrors() {
		reportAndFail(sink)
		return
	}

	if *flagState != "" {
		if err := writeStateFile(tbl, *flagState); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
			returnCode = ExitError
			return
		}
	}

	out := emit.Build(g, tbl, emit.Header{Version: "yalr"})
	if err := writeOutput(out); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = ExitError
	}
}

func reportAndFail(sink *diag.Sink) {
	sink.Render(os.Stderr)
	returnCode = ExitError
}

func writeStateFile(tbl *lrtable.Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return tbl.WriteStateFile(f)
}

func writeOutput(d *emit.Data) error {
	w := os.Stdout
	if *flagOutput != "" {
		f, err := os.Create(*flagOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	switch *flagFormat {
	case "summary":
		_, err := fmt.Fprintln(w, d.String())
		return err
	case "gostruct":
		_, err := fmt.Fprintf(w, "%#v\n", d)
		return err
	default:
		return fmt.Errorf("unknown format %q (want %s)", *flagFormat, util.MakeTextList(formats))
	}
}

// runRegexCheck compiles input as a lone pattern fragment (a literal string
// unless prefixed r:/rm:/rf:, the same prefixes term statements use) and
// reports match results for each line read from stdin, without requiring a
// full grammar file. Recovers original_source/examples/yalr_regex's
// standalone pattern-debugging tool.
func runRegexCheck(pattern string) {
	mode, text := rpn.FullRegex, pattern
	fold := false
	switch {
	case hasPrefix(pattern, "rm:"):
		text = pattern[3:]
	case hasPrefix(pattern, "rf:"):
		text = pattern[3:]
		fold = true
	case hasPrefix(pattern, "r:"):
		text = pattern[2:]
	default:
		mode = rpn.SimpleString
	}

	txt := source.New("regexcheck", text)
	frag := source.Span(txt, 0, source.Offset(len(text)))
	sink := diag.NewSink()

	prog := rpn.Compile(frag, mode, sink)
	if sink.HasErrors() {
		reportAndFail(sink)
		return
	}

	const checkSymbol symbols.ID = 0
	nfa := automaton.BuildNFA([]automaton.Pattern{{Symbol: checkSymbol, Prog: prog, Fold: fold}})
	dfa := nfa.ToDFA()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		matched, length, _ := dfa.Match(line)
		if matched {
			fmt.Printf("MATCH length=%d\n", length)
		} else {
			fmt.Println("NO MATCH")
		}
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
