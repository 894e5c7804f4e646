package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

var errInterrupted = errors.New("interrupted")

// Completer returns replacements for the text before the cursor.
type Completer interface {
	Complete(prefix string) []string
}

// keyResult holds a key press result
type keyResult struct {
	key string
	err error
}

// LineEditor provides an interactive line editor with completion and history.
type LineEditor struct {
	completer Completer
	oldState  *term.State
	fd        int
	out       io.Writer

	// Current line state
	line   []rune
	cursor int

	// Completion state
	completions    []string
	selected       int
	showPopup      bool
	popupLineCount int // Number of popup lines currently displayed

	// History, oldest first; histPos == len(history) is the line being edited
	history []string
	histMax int
	histPos int
	draft   []rune

	// Pending input bytes (for when we read multiple bytes at once)
	pendingInput []byte

	// Persistent key reader
	keyChan       chan keyResult
	readerRunning bool
}

// NewLineEditor creates a line editor keeping up to historySize entries.
func NewLineEditor(c Completer, historySize int) *LineEditor {
	return &LineEditor{
		completer: c,
		fd:        int(os.Stdin.Fd()),
		out:       os.Stdout,
		histMax:   historySize,
	}
}

// IsTerminal reports whether stdin is a terminal.
func (e *LineEditor) IsTerminal() bool {
	return term.IsTerminal(e.fd)
}

func (e *LineEditor) enterRawMode() error {
	oldState, err := term.MakeRaw(e.fd)
	if err != nil {
		return err
	}
	e.oldState = oldState
	return nil
}

func (e *LineEditor) exitRawMode() {
	if e.oldState != nil {
		term.Restore(e.fd, e.oldState)
		e.oldState = nil
	}
}

func (e *LineEditor) terminalWidth() int {
	width, _, err := term.GetSize(e.fd)
	if err != nil || width <= 0 {
		return 80
	}
	if width > 80 {
		return width - 1
	}
	return width
}

// AddHistory records a submitted entry, dropping the oldest past the limit.
func (e *LineEditor) AddHistory(entry string) {
	if entry == "" || e.histMax == 0 {
		return
	}
	if n := len(e.history); n > 0 && e.history[n-1] == entry {
		return
	}
	e.history = append(e.history, entry)
	if len(e.history) > e.histMax {
		e.history = e.history[len(e.history)-e.histMax:]
	}
}

// readByte reads a single byte, using pending buffer first
func (e *LineEditor) readByte() (byte, error) {
	if len(e.pendingInput) > 0 {
		b := e.pendingInput[0]
		e.pendingInput = e.pendingInput[1:]
		return b, nil
	}

	buf := make([]byte, 32)
	n, err := os.Stdin.Read(buf)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	if n > 1 {
		e.pendingInput = append(e.pendingInput, buf[1:n]...)
	}
	return buf[0], nil
}

// skipToTerminator skips bytes until a CSI terminator (0x40-0x7E).
func (e *LineEditor) skipToTerminator() {
	for {
		b, err := e.readByte()
		if err != nil || b >= 0x40 && b <= 0x7E {
			return
		}
	}
}

// readKey reads a single key press, handling escape sequences.
func (e *LineEditor) readKey() (string, error) {
	ch, err := e.readByte()
	if err != nil {
		return "", err
	}

	if ch == 0x1b {
		ch2, err := e.readByte()
		if err != nil || ch2 != '[' {
			return "escape", nil
		}
		ch3, err := e.readByte()
		if err != nil {
			return "escape", nil
		}
		switch ch3 {
		case 'A':
			return "up", nil
		case 'B':
			return "down", nil
		case 'C':
			return "right", nil
		case 'D':
			return "left", nil
		case 'H':
			return "home", nil
		case 'F':
			return "end", nil
		case 'Z':
			return "shift-tab", nil
		case '3':
			e.readByte() // ~
			return "delete", nil
		case 'I', 'O':
			// focus events
			return e.readKey()
		}
		if ch3 < 0x40 || ch3 > 0x7E {
			e.skipToTerminator()
		}
		return e.readKey()
	}

	switch ch {
	case 0x01:
		return "home", nil
	case 0x03:
		return "ctrl-c", nil
	case 0x04:
		return "ctrl-d", nil
	case 0x05:
		return "end", nil
	case 0x09:
		return "tab", nil
	case 0x0d, 0x0a:
		return "enter", nil
	case 0x7f, 0x08:
		return "backspace", nil
	case 0x15:
		return "ctrl-u", nil
	case 0x17:
		return "ctrl-w", nil
	}
	return string(ch), nil
}

// render displays the current line with prompt and any completion popup.
func (e *LineEditor) render(prompt string) {
	if e.popupLineCount > 0 {
		for i := 0; i < e.popupLineCount; i++ {
			fmt.Fprint(e.out, "\n\033[2K")
		}
		fmt.Fprintf(e.out, "\033[%dA\r", e.popupLineCount)
		e.popupLineCount = 0
	}

	fmt.Fprint(e.out, "\r\033[K")
	fmt.Fprint(e.out, prompt)
	fmt.Fprint(e.out, string(e.line))

	if e.showPopup && len(e.completions) > 0 {
		e.renderPopup()
	}

	fmt.Fprintf(e.out, "\r\033[%dC", len(prompt)+e.cursor)
}

// renderPopup displays up to ten completions below the current line.
func (e *LineEditor) renderPopup() {
	maxDisplay := min(len(e.completions), 10)
	maxLen := max(e.terminalWidth()-2, 40)
	e.popupLineCount = maxDisplay

	for i := 0; i < maxDisplay; i++ {
		fmt.Fprint(e.out, "\n\r\033[K")
		prefix := "  "
		if i == e.selected {
			prefix = "> "
		}
		line := prefix + e.completions[i]
		if len(line) > maxLen {
			line = line[:maxLen]
		}
		if i == e.selected {
			fmt.Fprintf(e.out, "\033[7m%s\033[0m", line)
		} else {
			fmt.Fprintf(e.out, "\033[2m%s\033[0m", line)
		}
	}
	if maxDisplay > 0 {
		fmt.Fprintf(e.out, "\033[%dA\r", maxDisplay)
	}
}

func (e *LineEditor) clearPopup() {
	if e.popupLineCount == 0 {
		return
	}
	for i := 0; i < e.popupLineCount; i++ {
		fmt.Fprint(e.out, "\n\033[2K")
	}
	fmt.Fprintf(e.out, "\033[%dA\r", e.popupLineCount)
	e.popupLineCount = 0
}

func (e *LineEditor) hidePopup() {
	if e.showPopup || e.popupLineCount > 0 {
		e.clearPopup()
		e.showPopup = false
		e.completions = nil
	}
}

func (e *LineEditor) fetchCompletions() {
	e.completions = e.completer.Complete(string(e.line[:e.cursor]))
	e.selected = 0
}

// applyCompletion replaces the text before the cursor with the selection.
func (e *LineEditor) applyCompletion() {
	if e.selected < 0 || e.selected >= len(e.completions) {
		return
	}
	text := []rune(e.completions[e.selected])
	rest := e.line[e.cursor:]
	e.line = append(text, rest...)
	e.cursor = len(text)
	e.showPopup = false
	e.completions = nil
}

// recall moves through history by delta.
func (e *LineEditor) recall(delta int) {
	pos := e.histPos + delta
	if pos < 0 || pos > len(e.history) {
		return
	}
	if e.histPos == len(e.history) {
		e.draft = append([]rune(nil), e.line...)
	}
	e.histPos = pos
	if pos == len(e.history) {
		e.line = append([]rune(nil), e.draft...)
	} else {
		e.line = []rune(e.history[pos])
	}
	e.cursor = len(e.line)
}

// startKeyReader starts the persistent key reader goroutine if not already running
func (e *LineEditor) startKeyReader() {
	if e.readerRunning {
		return
	}
	e.keyChan = make(chan keyResult, 16)
	e.readerRunning = true
	go func() {
		for {
			key, err := e.readKey()
			e.keyChan <- keyResult{key, err}
			if err != nil {
				e.readerRunning = false
				return
			}
		}
	}()
}

// ReadLine reads a complete line of input with completion support.
func (e *LineEditor) ReadLine(prompt string) (string, error) {
	if err := e.enterRawMode(); err != nil {
		return "", err
	}
	defer e.exitRawMode()

	resize, stop := setupResizeSignal()
	defer stop()

	e.startKeyReader()

	e.line = nil
	e.cursor = 0
	e.showPopup = false
	e.completions = nil
	e.selected = 0
	e.histPos = len(e.history)

	e.render(prompt)

	for {
		var kr keyResult
		select {
		case <-resize:
			e.render(prompt)
			continue
		case kr = <-e.keyChan:
		}
		if kr.err != nil {
			return "", kr.err
		}

		switch kr.key {
		case "enter":
			if e.showPopup && len(e.completions) > 0 {
				e.applyCompletion()
				break
			}
			e.clearPopup()
			fmt.Fprint(e.out, "\r\n")
			return string(e.line), nil

		case "ctrl-c":
			e.clearPopup()
			fmt.Fprint(e.out, "\r\n")
			return "", errInterrupted

		case "ctrl-d":
			if len(e.line) == 0 {
				e.clearPopup()
				fmt.Fprint(e.out, "\r\n")
				return "", io.EOF
			}
			if e.cursor < len(e.line) {
				e.line = append(e.line[:e.cursor], e.line[e.cursor+1:]...)
				e.hidePopup()
			}

		case "tab":
			if e.showPopup && len(e.completions) > 0 {
				e.selected = (e.selected + 1) % len(e.completions)
				break
			}
			e.fetchCompletions()
			if len(e.completions) == 1 {
				e.applyCompletion()
				break
			}
			e.showPopup = len(e.completions) > 0

		case "shift-tab":
			if e.showPopup && len(e.completions) > 0 {
				e.selected = (e.selected - 1 + len(e.completions)) % len(e.completions)
			}

		case "up":
			if e.showPopup && len(e.completions) > 0 {
				e.selected = (e.selected - 1 + len(e.completions)) % len(e.completions)
			} else {
				e.recall(-1)
			}

		case "down":
			if e.showPopup && len(e.completions) > 0 {
				e.selected = (e.selected + 1) % len(e.completions)
			} else {
				e.recall(1)
			}

		case "left":
			if e.cursor > 0 {
				e.cursor--
			}
			e.hidePopup()

		case "right":
			if e.cursor < len(e.line) {
				e.cursor++
			}
			e.hidePopup()

		case "home":
			e.cursor = 0
			e.hidePopup()

		case "end":
			e.cursor = len(e.line)
			e.hidePopup()

		case "backspace":
			if e.cursor > 0 {
				e.line = append(e.line[:e.cursor-1], e.line[e.cursor:]...)
				e.cursor--
				e.hidePopup()
			}

		case "delete":
			if e.cursor < len(e.line) {
				e.line = append(e.line[:e.cursor], e.line[e.cursor+1:]...)
				e.hidePopup()
			}

		case "ctrl-u":
			e.line = e.line[e.cursor:]
			e.cursor = 0
			e.hidePopup()

		case "ctrl-w":
			start := e.cursor
			for start > 0 && e.line[start-1] == ' ' {
				start--
			}
			for start > 0 && e.line[start-1] != ' ' {
				start--
			}
			e.line = append(e.line[:start], e.line[e.cursor:]...)
			e.cursor = start
			e.hidePopup()

		case "escape":
			e.hidePopup()

		default:
			if len(kr.key) == 1 && kr.key[0] >= 32 && kr.key[0] < 127 {
				line := make([]rune, 0, len(e.line)+1)
				line = append(line, e.line[:e.cursor]...)
				line = append(line, rune(kr.key[0]))
				line = append(line, e.line[e.cursor:]...)
				e.line = line
				e.cursor++
				e.hidePopup()
			}
		}

		e.render(prompt)
	}
}

// joinInput appends line to a pending multi-line chunk.
func joinInput(pending, line string) string {
	if pending == "" {
		return line
	}
	return pending + "\n" + line
}

// trimPrompt strips a trailing newline from piped input lines.
func trimPrompt(s string) string {
	return strings.TrimRight(s, "\r\n")
}
