package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artem13815/cvflow/pkg/cv"
)

func kindOf(t *testing.T, err error) cv.FailureKind {
	t.Helper()
	var pe *PermanentError
	require.True(t, errors.As(err, &pe), "want *PermanentError, got %v", err)
	return pe.Kind
}

func TestEmptyFileIsPermanent(t *testing.T) {
	_, err := New(50).Extract("cv.pdf", "application/pdf", nil)
	assert.Equal(t, cv.FailureEmpty, kindOf(t, err))
	assert.True(t, kindOf(t, err).Permanent())
}

func TestUnsupported(t *testing.T) {
	_, err := New(50).Extract("cv.exe", "application/octet-stream", []byte("MZ..."))
	assert.Equal(t, cv.FailureUnsupported, kindOf(t, err))
}

func TestPlainText(t *testing.T) {
	body := "John Doe\n\n\n  Senior Go engineer   with 7 years of backend experience in payments."
	text, err := New(50).Extract("cv.txt", "", []byte(body))
	require.NoError(t, err)
	assert.Equal(t, "John Doe\n Senior Go engineer with 7 years of backend experience in payments.", text)

	_, err = New(50).Extract("cv.txt", "", []byte("too short"))
	assert.Equal(t, cv.FailureTooShort, kindOf(t, err))

	_, err = New(50).Extract("cv.txt", "", []byte("   \n\t  "))
	assert.Equal(t, cv.FailureEmpty, kindOf(t, err))
}

func TestCorruptPDF(t *testing.T) {
	_, err := New(50).Extract("cv.pdf", "", []byte("%PDF-1.4 garbage without xref"))
	assert.Equal(t, cv.FailureCorrupt, kindOf(t, err))
}

func TestCorruptDocx(t *testing.T) {
	_, err := New(50).Extract("cv.docx", "", []byte("not a zip"))
	assert.Equal(t, cv.FailureCorrupt, kindOf(t, err))
}

func TestDocx(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	ct, err := zw.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, err = ct.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>` +
		`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
		`</Types>`))
	require.NoError(t, err)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	para := strings.Repeat("Experienced Go developer building distributed systems. ", 3)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		`<w:p><w:r><w:t>` + para + `</w:t></w:r></w:p></w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	text, err := New(50).Extract("cv.docx", "", buf.Bytes())
	require.NoError(t, err)
	assert.Contains(t, text, "Experienced Go developer")
}

func TestDetect(t *testing.T) {
	f, ok := Detect("resume", "application/pdf; charset=binary", nil)
	assert.True(t, ok)
	assert.Equal(t, FormatPDF, f)

	f, ok = Detect("resume", "", []byte("%PDF-1.7"))
	assert.True(t, ok)
	assert.Equal(t, FormatPDF, f)

	_, ok = Detect("resume.rtf", "application/rtf", nil)
	assert.False(t, ok)
}
