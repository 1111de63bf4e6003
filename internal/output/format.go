// Package output renders diagnostics, usages, completions, search history
// and import graphs for the command line.
package output

import (
	"fmt"
	"strings"

	"qmllink/internal/core/errors"
)

type Format string

const (
	Text    Format = "text"
	TSV     Format = "tsv"
	JSON    Format = "json"
	DOT     Format = "dot"
	Mermaid Format = "mermaid"
)

// ParseFormat accepts a format name case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return Text, nil
	case Text, TSV, JSON, DOT, Mermaid:
		return f, nil
	}
	return "", errors.New(errors.CodeValidationError, fmt.Sprintf("unknown output format %q", s))
}

func unsupported(f Format, what string) error {
	return errors.New(errors.CodeNotSupported, fmt.Sprintf("format %s cannot render %s", f, what))
}
