//go:build linux

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

var chatHistory []string

// readInteractiveLine reads one line with basic editing: arrows, home/end,
// delete, Ctrl+A/E/W and history on up/down. Falls back to plain buffered
// reads when stdin is not a terminal.
func readInteractiveLine(prompt string) (string, error) {
	if !stdinIsTTY() {
		return readPlainLine(prompt)
	}

	fd := int(os.Stdin.Fd())
	saved, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return "", err
	}
	raw := *saved
	raw.Lflag &^= unix.ICANON | unix.ECHO
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &raw); err != nil {
		return "", err
	}
	defer func() { _ = unix.IoctlSetTermios(fd, unix.TCSETS, saved) }()

	ed := lineEditor{prompt: prompt, histPos: len(chatHistory)}
	fmt.Print(prompt)
	return ed.loop()
}

type lineEditor struct {
	prompt string
	line   []byte
	cursor int

	histPos   int
	histDraft string
	browsing  bool
}

func (e *lineEditor) loop() (string, error) {
	var buf [16]byte
	esc := 0
	var seq strings.Builder

	for {
		n, err := os.Stdin.Read(buf[:])
		if err != nil {
			return "", err
		}
		for _, b := range buf[:n] {
			if esc == 1 {
				if b == '[' {
					esc = 2
					seq.Reset()
				} else {
					esc = 0
				}
				continue
			}
			if esc == 2 {
				seq.WriteByte(b)
				if (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || b == '~' {
					e.handleSeq(seq.String())
					esc = 0
				}
				continue
			}

			switch b {
			case 27: // ESC
				esc = 1
			case '\r', '\n':
				fmt.Print("\r\n")
				out := string(e.line)
				if strings.TrimSpace(out) != "" {
					chatHistory = append(chatHistory, out)
				}
				return out, nil
			case 3: // Ctrl+C
				fmt.Print("^C\r\n")
				return "", io.EOF
			case 4: // Ctrl+D on an empty line
				if len(e.line) == 0 {
					fmt.Print("\r\n")
					return "", io.EOF
				}
			case 127, 8: // backspace
				if e.cursor > 0 {
					e.line = append(e.line[:e.cursor-1], e.line[e.cursor:]...)
					e.cursor--
					e.redraw()
				}
			case 1: // Ctrl+A
				e.cursor = 0
				e.redraw()
			case 5: // Ctrl+E
				e.cursor = len(e.line)
				e.redraw()
			case 23: // Ctrl+W
				e.deleteWordBack()
			default:
				if b >= 32 {
					e.insert(b)
				}
			}
		}
	}
}

func (e *lineEditor) handleSeq(seq string) {
	switch seq {
	case "A": // history up
		if len(chatHistory) == 0 {
			return
		}
		if !e.browsing {
			e.histDraft = string(e.line)
			e.browsing = true
			e.histPos = len(chatHistory)
		}
		if e.histPos > 0 {
			e.histPos--
			e.setLine(chatHistory[e.histPos])
		}
	case "B": // history down
		if !e.browsing {
			return
		}
		if e.histPos < len(chatHistory)-1 {
			e.histPos++
			e.setLine(chatHistory[e.histPos])
		} else {
			e.histPos = len(chatHistory)
			e.setLine(e.histDraft)
			e.browsing = false
		}
	case "D": // left
		if e.cursor > 0 {
			e.cursor--
			e.redraw()
		}
	case "C": // right
		if e.cursor < len(e.line) {
			e.cursor++
			e.redraw()
		}
	case "H":
		e.cursor = 0
		e.redraw()
	case "F":
		e.cursor = len(e.line)
		e.redraw()
	case "3~": // delete
		if e.cursor < len(e.line) {
			e.line = append(e.line[:e.cursor], e.line[e.cursor+1:]...)
			e.redraw()
		}
	}
}

func (e *lineEditor) insert(b byte) {
	if e.cursor == len(e.line) {
		e.line = append(e.line, b)
	} else {
		e.line = append(e.line, 0)
		copy(e.line[e.cursor+1:], e.line[e.cursor:])
		e.line[e.cursor] = b
	}
	e.cursor++
	e.redraw()
}

func (e *lineEditor) deleteWordBack() {
	start := e.cursor
	for start > 0 && (e.line[start-1] == ' ' || e.line[start-1] == '\t') {
		start--
	}
	for start > 0 && e.line[start-1] != ' ' && e.line[start-1] != '\t' {
		start--
	}
	if start == e.cursor {
		return
	}
	e.line = append(e.line[:start], e.line[e.cursor:]...)
	e.cursor = start
	e.redraw()
}

func (e *lineEditor) setLine(s string) {
	e.line = append(e.line[:0], s...)
	e.cursor = len(e.line)
	e.redraw()
}

func (e *lineEditor) redraw() {
	fmt.Printf("\r%s%s\x1b[K", e.prompt, string(e.line))
	if e.cursor < len(e.line) {
		fmt.Printf("\r%s%s", e.prompt, string(e.line[:e.cursor]))
	}
}

func stdinIsTTY() bool {
	st, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return st.Mode()&os.ModeCharDevice != 0
}

func readPlainLine(_ string) (string, error) {
	r := bufio.NewReader(os.Stdin)
	s, err := r.ReadString('\n')
	if err != nil {
		if err != io.EOF || s == "" {
			return "", err
		}
	}
	return strings.TrimRight(s, "\r\n"), nil
}
