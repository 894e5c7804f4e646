package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/feather-lang/tether/luahost"
)

// runREPL runs an interactive session with the line editor. Input that
// ends mid-chunk keeps accumulating under a continuation prompt.
func runREPL(h *luahost.Host, editor *LineEditor) error {
	fmt.Println("tether REPL - Press Tab for completions, Ctrl-D to exit")

	var pending string
	for {
		prompt := "> "
		if pending != "" {
			prompt = ">> "
		}
		line, err := editor.ReadLine(prompt)
		if errors.Is(err, errInterrupted) {
			pending = ""
			continue
		}
		if errors.Is(err, io.EOF) {
			if pending != "" {
				fmt.Println("Incomplete input, discarded")
			}
			return nil
		}
		if err != nil {
			return err
		}

		pending = joinInput(pending, line)
		if h.Incomplete(pending) {
			continue
		}
		editor.AddHistory(pending)
		evalAndPrint(h, pending, os.Stdout)
		pending = ""
	}
}

// runPiped evaluates line-oriented input without a terminal.
func runPiped(h *luahost.Host, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	var pending string
	for scanner.Scan() {
		pending = joinInput(pending, trimPrompt(scanner.Text()))
		if h.Incomplete(pending) {
			continue
		}
		evalAndPrint(h, pending, out)
		pending = ""
	}
	if pending != "" {
		evalAndPrint(h, pending, out)
	}
	return scanner.Err()
}

func evalAndPrint(h *luahost.Host, src string, out io.Writer) {
	results, err := h.Eval(src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	for _, r := range results {
		fmt.Fprintln(out, r)
	}
}
