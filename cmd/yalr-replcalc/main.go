/*
Yalr-replcalc is a worked example showing a table built by internal/lrtable
actually driving a parse, not just being printed: it compiles a small
calculator grammar (assignment, print, and + - * / over parenthesized
expressions) embedded in internal/replcalc, then reads expressions from
stdin one line at a time and evaluates each against the compiled table.

Usage:

	yalr-replcalc [-f FILE]

With -f/--file, FILE is read and evaluated one line at a time as a batch,
recovering original_source/examples/replcalc's file-input mode. With no
flags, lines are read interactively via a GNU-readline-alike so editing and
history work the way they do at a real shell prompt.
*/
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/dekarrin/yalr/internal/replcalc"
	"github.com/spf13/pflag"
)

const (
	ExitSuccess = iota
	ExitError
)

var (
	returnCode = ExitSuccess
	flagFile   = pflag.StringP("file", "f", "", "evaluate this file as a batch instead of reading stdin interactively")
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

	eng, err := replcalc.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = ExitError
		return
	}

	if *flagFile != "" {
		runBatch(eng, *flagFile)
		return
	}
	runInteractive(eng)
}

func runBatch(eng *replcalc.Engine, path string) {
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = ExitError
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		evalLine(eng, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = ExitError
	}
}

func runInteractive(eng *replcalc.Engine) {
	rl, err := readline.NewEx(&readline.Config{Prompt: "calc: "})
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: create readline config: %s\n", err.Error())
		returnCode = ExitError
		return
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err != io.EOF && err != readline.ErrInterrupt {
				fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
				returnCode = ExitError
			}
			return
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.TrimSpace(line) == ":dump" {
			fmt.Println(eng.Dump())
			continue
		}
		evalLine(eng, line)
	}
}

func evalLine(eng *replcalc.Engine, line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	out, err := eng.Eval(line)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		return
	}
	if out != "" {
		fmt.Println(out)
	}
}
