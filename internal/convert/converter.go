// Package convert turns stored UVL feature models into the download formats
// offered by the portal.
package convert

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/kerem-kaynak/uvlhub/internal/apperr"
	"github.com/kerem-kaynak/uvlhub/internal/uvl"
)

// Format is a download format literal.
type Format string

const (
	UVL     Format = "UVL"
	DIMACS  Format = "DIMACS"
	SPLOT   Format = "SPLOT"
	GLENCOE Format = "GLENCOE"
)

// Formats lists every supported format.
var Formats = []Format{UVL, DIMACS, SPLOT, GLENCOE}

// UnsupportedFormatMessage is the error payload for an unknown format.
const UnsupportedFormatMessage = "Formato de descarga no soportado"

// ParseFormat accepts exactly one of the supported literals.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", apperr.NewUnsupported(UnsupportedFormatMessage)
}

// FormatNames returns the supported literals as strings.
func FormatNames() []string {
	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = string(f)
	}
	return names
}

func (f Format) suffix() string {
	switch f {
	case DIMACS:
		return "_cnf.txt"
	case SPLOT:
		return "_splot.txt"
	case GLENCOE:
		return "_glencoe.txt"
	default:
		return ""
	}
}

// Filename derives the download name of original in format f.
func (f Format) Filename(original string) string {
	return original + f.suffix()
}

// Result is a converted file ready to be archived.
type Result struct {
	Filename string
	Content  []byte
}

// Convert transforms UVL content into format. UVL is passed through
// unchanged. Failures are Conversion errors naming filename and format.
func Convert(filename string, content []byte, format Format) (*Result, error) {
	if format == UVL {
		return &Result{Filename: filename, Content: content}, nil
	}

	model, err := uvl.ReadModel(bytes.NewReader(content))
	if err != nil {
		return nil, apperr.NewConversion(filename, string(format), err)
	}

	var out string
	switch format {
	case DIMACS:
		out, err = WriteDIMACS(model)
	case SPLOT:
		out, err = WriteSPLOT(model)
	case GLENCOE:
		out, err = WriteGLENCOE(model)
	default:
		err = fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return nil, apperr.NewConversion(filename, string(format), err)
	}

	return &Result{Filename: format.Filename(filename), Content: []byte(out)}, nil
}

// Source loads stored file content by key.
type Source interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Converter reads UVL files from a Source and converts them.
type Converter struct {
	source Source
}

func NewConverter(source Source) *Converter {
	return &Converter{source: source}
}

// ConvertFile loads key and converts it. A missing or unreadable source is
// reported as a Conversion error.
func (c *Converter) ConvertFile(ctx context.Context, key, filename string, format Format) (*Result, error) {
	content, err := c.source.Get(ctx, key)
	if err != nil {
		return nil, apperr.NewConversion(filename, string(format), fmt.Errorf("read %s: %w", key, err))
	}
	return Convert(filename, content, format)
}

// IsUVLFilename reports whether name carries the .uvl extension.
func IsUVLFilename(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".uvl")
}
