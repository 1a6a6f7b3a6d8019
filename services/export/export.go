// Package exportsvc renders curricula as downloadable documents.
package exportsvc

import (
	"io"
	"strings"
	"unicode"

	"github.com/pkg/errors"

	"github.com/trezcool/tutortrack/core/flow"
)

// Formats
const (
	FormatPDF  = "pdf"
	FormatDOCX = "docx"
)

var ErrUnknownFormat = errors.New("unknown export format")

var contentTypes = map[string]string{
	FormatPDF:  "application/pdf",
	FormatDOCX: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// Exporter writes a curriculum in one of the supported formats.
type Exporter struct {
	AppName string
}

func NewExporter(appName string) *Exporter {
	return &Exporter{AppName: appName}
}

// Export writes cur to w in format and returns its content type.
func (e *Exporter) Export(w io.Writer, format string, cur flow.CurriculumOutput) (string, error) {
	var err error
	switch format {
	case FormatPDF:
		err = PDF(w, cur, e.AppName)
	case FormatDOCX:
		err = DOCX(w, cur)
	default:
		return "", ErrUnknownFormat
	}
	if err != nil {
		return "", err
	}
	return contentTypes[format], nil
}

// ContentType returns the MIME type of format, or "" if unknown.
func ContentType(format string) string {
	return contentTypes[format]
}

// Filename turns title into a download name: whitespace becomes "_", path and quote characters are dropped.
func Filename(title, ext string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(title) {
		switch {
		case unicode.IsSpace(r):
			b.WriteRune('_')
		case strings.ContainsRune(`/\"`, r), unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}
	name := b.String()
	if name == "" {
		name = "curriculum"
	}
	return name + "." + ext
}
