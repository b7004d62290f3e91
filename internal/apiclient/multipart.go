package apiclient

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
)

// File is one upload part.
type File struct {
	Name    string
	Content io.Reader
}

// Multipart is a pre-built multipart/form-data body. Do sends it as-is.
type Multipart struct {
	ContentType string
	Body        io.Reader
	Size        int
}

// NewMultipart encodes files under a single form field.
func NewMultipart(field string, files []File) (*Multipart, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range files {
		part, err := w.CreateFormFile(field, filepath.Base(f.Name))
		if err != nil {
			return nil, fmt.Errorf("creating form part for %s: %w", f.Name, err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, fmt.Errorf("copying %s: %w", f.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	return &Multipart{
		ContentType: w.FormDataContentType(),
		Body:        bytes.NewReader(buf.Bytes()),
		Size:        buf.Len(),
	}, nil
}
