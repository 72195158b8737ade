package httpclient

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
)

// MultipartBody is a multipart/form-data body. Fields and files keep the
// order they were added in.
type MultipartBody struct {
	Fields []FormField
	Files  []FileField
}

// FormField is a simple form value.
type FormField struct {
	Name  string
	Value string
}

// FileField is a file part.
type FileField struct {
	// FieldName is the form field name.
	FieldName string
	// FileName is the file name sent to the server.
	FileName string
	// ContentType defaults to application/octet-stream.
	ContentType string
	// Data is used when Reader is nil.
	Data []byte
	// Reader streams large content.
	Reader io.Reader
}

// AddField appends a form value.
func (m *MultipartBody) AddField(name, value string) {
	m.Fields = append(m.Fields, FormField{Name: name, Value: value})
}

// AddFile appends a file part.
func (m *MultipartBody) AddFile(f FileField) {
	m.Files = append(m.Files, f)
}

func (m *MultipartBody) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range m.Fields {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return nil, "", err
		}
	}

	for _, f := range m.Files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition",
			`form-data; name="`+quoteEscaper.Replace(f.FieldName)+`"; filename="`+quoteEscaper.Replace(f.FileName)+`"`)
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		header.Set("Content-Type", ct)

		part, err := w.CreatePart(header)
		if err != nil {
			return nil, "", err
		}
		switch {
		case f.Reader != nil:
			_, err = io.Copy(part, f.Reader)
		default:
			_, err = part.Write(f.Data)
		}
		if err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)
