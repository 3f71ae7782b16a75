// Package save holds the output options shared by the catalog writers.
package save

import (
	"fmt"
	"io"
	"strings"
)

// Format is an export output format.
type Format int

// Format constants.
const (
	FormatJSON Format = iota
	FormatCSV
	FormatXLSX
)

// IsValid checks if the format is valid.
func (f Format) IsValid() bool {
	switch f {
	case FormatJSON, FormatCSV, FormatXLSX:
		return true
	default:
		return false
	}
}

// String returns the string representation of the format.
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatCSV:
		return "csv"
	case FormatXLSX:
		return "xlsx"
	}
	return "unknown"
}

// ParseFormat parses a format name such as "json" or "xlsx".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	}
	return 0, fmt.Errorf("unknown export format %q", s)
}

// ParseFormats parses a list of format names, dropping repeats.
func ParseFormats(names []string) ([]Format, error) {
	var formats []Format
	seen := make(map[Format]bool)
	for _, name := range names {
		for _, part := range strings.Split(name, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			f, err := ParseFormat(part)
			if err != nil {
				return nil, err
			}
			if !seen[f] {
				seen[f] = true
				formats = append(formats, f)
			}
		}
	}
	return formats, nil
}

// Options is the configuration for save.
type Options struct {
	path   string
	writer io.Writer
	format Format
}

// Path returns the path for the save options.
func (s *Options) Path() string {
	return s.path
}

// Writer returns the writer for the save options.
func (s *Options) Writer() io.Writer {
	return s.writer
}

// Format returns the format for the save options.
func (s *Options) Format() Format {
	return s.format
}

// Defaults returns the default save options.
func Defaults() *Options {
	return &Options{
		format: FormatJSON,
	}
}

// Apply applies the given options to the save options.
func (s *Options) Apply(opts ...Option) Options {
	for _, opt := range opts {
		opt(s)
	}
	return *s
}

// Option is a function that configures save options.
type Option func(*Options)

// WithFormat for custom output format.
func WithFormat(f Format) Option {
	return func(s *Options) {
		s.format = f
	}
}

// WithPath for filesystem saves.
func WithPath(path string) Option {
	return func(s *Options) {
		s.path = path
	}
}

// WithWriter for custom outputs.
func WithWriter(w io.Writer) Option {
	return func(s *Options) {
		s.writer = w
	}
}
