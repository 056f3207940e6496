// Package extract turns uploaded CV bytes into plain text.
// Every failure is permanent: the same bytes will never parse on a retry.
package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"code.sajari.com/docconv"
	pdf "github.com/ledongthuc/pdf"

	"github.com/artem13815/cvflow/pkg/cv"
)

// PermanentError is an extraction failure with a user-visible reason.
type PermanentError struct {
	Kind    cv.FailureKind
	Message string
	Err     error
}

func (e *PermanentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *PermanentError) Unwrap() error { return e.Err }

func permanent(kind cv.FailureKind, msg string, err error) error {
	return &PermanentError{Kind: kind, Message: msg, Err: err}
}

type Extractor struct {
	MinChars int
}

func New(minChars int) *Extractor {
	if minChars <= 0 {
		minChars = 50
	}
	return &Extractor{MinChars: minChars}
}

// Format is the detected document type.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatODT  Format = "odt"
	FormatText Format = "txt"
)

// Supported lists the extensions accepted at upload time.
var Supported = []string{".pdf", ".docx", ".odt", ".txt"}

// Detect looks at the extension first, then the declared content type and
// finally the leading bytes.
func Detect(filename, contentType string, data []byte) (Format, bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return FormatPDF, true
	case ".docx":
		return FormatDOCX, true
	case ".odt":
		return FormatODT, true
	case ".txt":
		return FormatText, true
	}
	switch strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0])) {
	case "application/pdf":
		return FormatPDF, true
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return FormatDOCX, true
	case "application/vnd.oasis.opendocument.text":
		return FormatODT, true
	case "text/plain":
		return FormatText, true
	}
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		return FormatPDF, true
	}
	return "", false
}

// Extract returns normalized text or a *PermanentError.
func (e *Extractor) Extract(filename, contentType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", permanent(cv.FailureEmpty, "file is empty", nil)
	}
	format, ok := Detect(filename, contentType, data)
	if !ok {
		return "", permanent(cv.FailureUnsupported, "unsupported file type: only pdf, docx, odt and txt are allowed", nil)
	}
	var (
		text string
		err  error
	)
	switch format {
	case FormatPDF:
		text, err = extractPDF(data)
	case FormatDOCX:
		text, err = extractDocx(data)
	case FormatODT:
		text, err = extractODT(data)
	case FormatText:
		if !utf8.Valid(data) {
			return "", permanent(cv.FailureCorrupt, "text file is not valid UTF-8", nil)
		}
		text = string(data)
	}
	if err != nil {
		return "", err
	}
	text = normalizeWhitespace(text)
	switch n := utf8.RuneCountInString(text); {
	case n == 0:
		return "", permanent(cv.FailureEmpty, "no text could be extracted", nil)
	case n < e.MinChars:
		return "", permanent(cv.FailureTooShort, fmt.Sprintf("extracted text too short (%d characters)", n), nil)
	}
	return text, nil
}

// both parsers panic on some malformed inputs
func recoverCorrupt(format Format, text *string, err *error) {
	if r := recover(); r != nil {
		*text, *err = "", permanent(cv.FailureCorrupt, string(format)+" is corrupt", fmt.Errorf("%v", r))
	}
}

func extractPDF(data []byte) (text string, err error) {
	defer recoverCorrupt(FormatPDF, &text, &err)
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		if errors.Is(err, pdf.ErrInvalidPassword) {
			return "", permanent(cv.FailureEncrypted, "pdf is password protected", err)
		}
		return "", permanent(cv.FailureCorrupt, "pdf is corrupt", err)
	}
	rs, err := r.GetPlainText()
	if err != nil {
		return "", permanent(cv.FailureCorrupt, "pdf is corrupt", err)
	}
	var buf bytes.Buffer
	if _, err = io.Copy(&buf, rs); err != nil {
		return "", permanent(cv.FailureCorrupt, "pdf is corrupt", err)
	}
	return buf.String(), nil
}

func extractDocx(data []byte) (text string, err error) {
	defer recoverCorrupt(FormatDOCX, &text, &err)
	if _, err := zip.NewReader(bytes.NewReader(data), int64(len(data))); err != nil {
		return "", permanent(cv.FailureCorrupt, "docx is corrupt", err)
	}
	text, _, err = docconv.ConvertDocx(bytes.NewReader(data))
	if err != nil {
		return "", permanent(cv.FailureCorrupt, "docx is corrupt", err)
	}
	return text, nil
}

func extractODT(data []byte) (text string, err error) {
	defer recoverCorrupt(FormatODT, &text, &err)
	text, _, err = docconv.ConvertODT(bytes.NewReader(data))
	if err != nil {
		return "", permanent(cv.FailureCorrupt, "odt is corrupt", err)
	}
	return text, nil
}

var (
	reBlanks   = regexp.MustCompile(`[ \t\r\f\v]+`)
	reNewlines = regexp.MustCompile(`\n\s*\n+`)
)

func normalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = reBlanks.ReplaceAllString(s, " ")
	s = reNewlines.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}
