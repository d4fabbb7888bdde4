// Package intake checks uploaded files and pasted text before anything is
// read, then turns accepted input into plain text.
package intake

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/fadilmartias/cv-builder/internal/apperror"
)

const (
	MaxFileBytes      = 10 << 20
	MaxJobSpecRunes   = 4000
	MaxExtraPromptLen = 500
)

type Kind string

const (
	KindPDF  Kind = "pdf"
	KindTXT  Kind = "txt"
	KindHTML Kind = "html"
)

// Upload describes a file without reading it. Open is only called after the
// size and type checks pass.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

func FromMultipart(fh *multipart.FileHeader) Upload {
	return Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

func FromBytes(filename, contentType string, data []byte) Upload {
	return Upload{
		Filename:    filename,
		ContentType: contentType,
		Size:        int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

var mimeKinds = map[string]Kind{
	"application/pdf":   KindPDF,
	"application/x-pdf": KindPDF,
	"text/plain":        KindTXT,
	"text/html":         KindHTML,
}

var extKinds = map[string]Kind{
	".pdf":  KindPDF,
	".txt":  KindTXT,
	".html": KindHTML,
	".htm":  KindHTML,
}

// detectKind prefers the declared MIME type and falls back to the extension
// when the client sent a generic type.
func detectKind(u Upload) (Kind, bool) {
	ct := strings.ToLower(strings.TrimSpace(u.ContentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if k, ok := mimeKinds[ct]; ok {
		return k, true
	}
	if ct != "" && ct != "application/octet-stream" {
		return "", false
	}
	k, ok := extKinds[strings.ToLower(filepath.Ext(u.Filename))]
	return k, ok
}

func check(u Upload, what string, allowed ...Kind) (Kind, error) {
	if u.Size <= 0 {
		return "", apperror.New(apperror.CodeInvalidInput, fmt.Sprintf("%s file is empty", what))
	}
	if u.Size > MaxFileBytes {
		return "", apperror.New(apperror.CodeInvalidInput,
			fmt.Sprintf("%s file exceeds the %d MB limit", what, MaxFileBytes>>20))
	}
	kind, ok := detectKind(u)
	if ok {
		for _, a := range allowed {
			if a == kind {
				return kind, nil
			}
		}
	}
	names := make([]string, len(allowed))
	for i, a := range allowed {
		names[i] = strings.ToUpper(string(a))
	}
	return "", apperror.New(apperror.CodeInvalidInput,
		fmt.Sprintf("%s file must be one of: %s", what, strings.Join(names, ", ")))
}

// CheckResume validates a resume upload. PDF and TXT are accepted.
func CheckResume(u Upload) (Kind, error) {
	return check(u, "Resume", KindPDF, KindTXT)
}

// CheckJobSpecFile validates a job description upload. HTML is accepted in
// addition to the resume types.
func CheckJobSpecFile(u Upload) (Kind, error) {
	return check(u, "Job description", KindPDF, KindTXT, KindHTML)
}

func CheckJobSpecText(s string) error {
	if utf8.RuneCountInString(s) > MaxJobSpecRunes {
		return apperror.New(apperror.CodeInvalidInput,
			fmt.Sprintf("Job description must be at most %d characters", MaxJobSpecRunes))
	}
	return nil
}

func CheckExtraPrompt(s string) error {
	if utf8.RuneCountInString(s) > MaxExtraPromptLen {
		return apperror.New(apperror.CodeInvalidInput,
			fmt.Sprintf("Additional instructions must be at most %d characters", MaxExtraPromptLen))
	}
	return nil
}

func readAll(u Upload) ([]byte, error) {
	if u.Open == nil {
		return nil, apperror.New(apperror.CodeInvalidInput, "File is not readable")
	}
	rc, err := u.Open()
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInvalidInput, "Failed to open file", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, MaxFileBytes+1))
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInvalidInput, "Failed to read file", err)
	}
	if len(data) > MaxFileBytes {
		return nil, apperror.New(apperror.CodeInvalidInput, "File exceeds the 10 MB limit")
	}
	return data, nil
}
