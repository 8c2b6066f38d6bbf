// Package highlight detects source languages and renders content diffs
// with ANSI colors for terminals.
package highlight

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
)

// LexerForPath picks a lexer from the file name, or nil when none matches.
func LexerForPath(path string) chroma.Lexer {
	if path == "" {
		return nil
	}
	lexer := lexers.Match(path)
	if lexer == nil {
		return nil
	}
	return chroma.Coalesce(lexer)
}

// Language returns the chroma language name for path, or "" if unknown.
func Language(path string) string {
	lexer := LexerForPath(path)
	if lexer == nil {
		return ""
	}
	return lexer.Config().Name
}

// RenderDiff writes a display diff, whose lines start with "  ", "- " or
// "+ ", syntax highlighted for path using the terminal256 formatter.
// Unknown languages only get the marker colors.
func RenderDiff(w io.Writer, display, path string, theme Theme) error {
	lexer := LexerForPath(path)
	style := StyleFor(theme)
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}
	bw := bufio.NewWriter(w)
	for _, line := range strings.SplitAfter(display, "\n") {
		if line == "" {
			continue
		}
		marker, code := splitMarker(line)
		if err := writeMarker(bw, marker); err != nil {
			return err
		}
		if lexer == nil || code == "" {
			if _, err := bw.WriteString(code); err != nil {
				return err
			}
			continue
		}
		iterator, err := lexer.Tokenise(nil, code)
		if err != nil {
			return fmt.Errorf("tokenise %s: %w", path, err)
		}
		if err := formatter.Format(bw, style, iterator); err != nil {
			return fmt.Errorf("format %s: %w", path, err)
		}
	}
	return bw.Flush()
}

func splitMarker(line string) (string, string) {
	if len(line) >= 2 {
		switch line[:2] {
		case "+ ", "- ", "  ":
			return line[:2], line[2:]
		}
	}
	return "", line
}

func writeMarker(w *bufio.Writer, marker string) error {
	var err error
	switch marker {
	case "+ ":
		_, err = w.WriteString(ansiGreen + "+" + ansiReset + " ")
	case "- ":
		_, err = w.WriteString(ansiRed + "-" + ansiReset + " ")
	default:
		_, err = w.WriteString(marker)
	}
	return err
}
