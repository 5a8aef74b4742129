// Package output renders rosterctl results as aligned tables for humans
// or JSON/YAML for scripts.
package output

import (
	"fmt"
	"io"
	"strings"
)

// Format names a rendering style.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat maps a --output flag value to a Format. The empty string
// means table; "yml" is accepted as a YAML spelling.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("invalid output format %q (valid: table, json, yaml)", s)
}

func (f Format) String() string {
	return string(f)
}

// Successln writes a confirmation line, green when color is on. Meant for
// table mode only; structured modes should emit the resource instead.
func Successln(w io.Writer, color bool, msg string) {
	if color {
		fmt.Fprintf(w, "\033[32m%s\033[0m\n", msg)
		return
	}
	fmt.Fprintln(w, msg)
}

// Warnln writes a warning line, yellow when color is on.
func Warnln(w io.Writer, color bool, msg string) {
	if color {
		fmt.Fprintf(w, "\033[33m%s\033[0m\n", msg)
		return
	}
	fmt.Fprintln(w, msg)
}
