package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/thiagokokada/giter-go/internal/git"
	"github.com/thiagokokada/giter-go/internal/watch"
)

type format string

const (
	formatText format = "text"
	formatJSON format = "json"
	formatYAML format = "yaml"
)

func parseFormat(raw string) (format, error) {
	switch f := format(strings.ToLower(strings.TrimSpace(raw))); f {
	case formatText, formatJSON, formatYAML:
		return f, nil
	case "":
		return formatText, nil
	default:
		return "", fmt.Errorf("unknown output format %q", raw)
	}
}

// emit writes v in the selected structured format, or calls text for the
// plain text format.
func (f format) emit(w io.Writer, v any, text func(io.Writer) error) error {
	switch f {
	case formatJSON:
		return writeJSON(w, v)
	case formatYAML:
		return writeYAML(w, v)
	default:
		if text == nil {
			return writeYAML(w, v)
		}
		return text(w)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// writeError renders a failure as {code, message, op, module}.
func writeError(w io.Writer, f format, err error) {
	p := git.NewErrorPayload("giter", err)
	switch f {
	case formatJSON:
		_ = json.NewEncoder(w).Encode(p)
	case formatYAML:
		_ = writeYAML(w, p)
	default:
		fmt.Fprintf(w, "giter: %s [%s %s]\n", p.Message, p.Module, codeName(p))
	}
}

func codeName(p *git.ErrorPayload) string {
	if p.Module == watch.ModuleName {
		return watch.Code(p.Code).String()
	}
	return git.Code(p.Code).String()
}
