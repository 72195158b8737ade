package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// RequestMessage is an outbound request under construction.
type RequestMessage struct {
	Method string
	// BaseURL is the address relative paths resolve against.
	BaseURL *url.URL
	// Path is relative to BaseURL or absolute. It may hold {name}
	// placeholders until ReplacePath fills them.
	Path   string
	Query  url.Values
	Header http.Header

	body        io.Reader
	bodyBytes   []byte
	contentType string
	multipart   *MultipartBody
}

// NewRequestMessage returns an empty GET message.
func NewRequestMessage() *RequestMessage {
	return &RequestMessage{
		Method: http.MethodGet,
		Query:  url.Values{},
		Header: http.Header{},
	}
}

// SetBody sets a buffered body.
func (m *RequestMessage) SetBody(data []byte, contentType string) {
	m.body, m.bodyBytes, m.contentType, m.multipart = nil, data, contentType, nil
}

// SetBodyReader sets a streamed body. It can be sent once.
func (m *RequestMessage) SetBodyReader(r io.Reader, contentType string) {
	m.body, m.bodyBytes, m.contentType, m.multipart = r, nil, contentType, nil
}

// HasBody reports whether any body was set.
func (m *RequestMessage) HasBody() bool {
	return m.body != nil || m.bodyBytes != nil || m.multipart != nil
}

// BodyBytes returns the buffered body, or nil for streamed and multipart
// bodies.
func (m *RequestMessage) BodyBytes() []byte { return m.bodyBytes }

// ContentType returns the content type of the body.
func (m *RequestMessage) ContentType() string { return m.contentType }

// Multipart returns the multipart body, replacing any other body on first use.
func (m *RequestMessage) Multipart() *MultipartBody {
	if m.multipart == nil {
		m.body, m.bodyBytes, m.contentType = nil, nil, ""
		m.multipart = &MultipartBody{}
	}
	return m.multipart
}

// ReplacePath substitutes {name} in Path with the escaped value.
// It reports whether the placeholder was present.
func (m *RequestMessage) ReplacePath(name, value string) bool {
	placeholder := "{" + name + "}"
	if !strings.Contains(m.Path, placeholder) {
		return false
	}
	m.Path = strings.ReplaceAll(m.Path, placeholder, url.PathEscape(value))
	return true
}

// HasPlaceholder reports whether Path still contains {name}.
func (m *RequestMessage) HasPlaceholder(name string) bool {
	return strings.Contains(m.Path, "{"+name+"}")
}

// URL resolves the final request address.
func (m *RequestMessage) URL() (*url.URL, error) {
	if i := strings.IndexByte(m.Path, '{'); i >= 0 {
		end := strings.IndexByte(m.Path[i:], '}')
		if end > 0 {
			return nil, NewValidationError(fmt.Sprintf("unresolved path parameter %s", m.Path[i:i+end+1]))
		}
	}
	ref, err := url.Parse(m.Path)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("invalid path %q: %v", m.Path, err))
	}

	var u *url.URL
	switch {
	case ref.IsAbs():
		u = ref
	case m.BaseURL == nil:
		return nil, NewValidationError(fmt.Sprintf("relative path %q without a base address", m.Path))
	default:
		u = m.BaseURL.ResolveReference(ref)
	}

	if len(m.Query) > 0 {
		q := u.Query()
		for k, vs := range m.Query {
			q[k] = append(q[k], vs...)
		}
		u.RawQuery = q.Encode()
	}
	return u, nil
}

// Build creates the *http.Request bound to ctx.
func (m *RequestMessage) Build(ctx context.Context) (*http.Request, error) {
	u, err := m.URL()
	if err != nil {
		return nil, err
	}

	var (
		body        io.Reader
		contentType = m.contentType
	)
	switch {
	case m.multipart != nil:
		body, contentType, err = m.multipart.encode()
		if err != nil {
			return nil, NewValidationError(fmt.Sprintf("encode multipart body: %v", err))
		}
	case m.bodyBytes != nil:
		body = bytes.NewReader(m.bodyBytes)
	case m.body != nil:
		body = m.body
	}

	req, err := http.NewRequestWithContext(ctx, m.Method, u.String(), body)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("create request: %v", err))
	}
	for k, vs := range m.Header {
		req.Header[k] = append([]string(nil), vs...)
	}
	if body != nil && contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

// Response is a fully read response.
type Response struct {
	StatusCode int
	// Reason is the status text without the code, e.g. "Not Found".
	Reason string
	// Proto is the protocol version, e.g. "HTTP/1.1".
	Proto  string
	Header http.Header
	Body   []byte
	// FromCache is set when the response was served from a response cache.
	FromCache bool
}

// NewResponse captures resp with an already read body.
func NewResponse(resp *http.Response, body []byte) *Response {
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprintf("%d", resp.StatusCode)))
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Reason:     reason,
		Proto:      resp.Proto,
		Header:     resp.Header.Clone(),
		Body:       body,
	}
}

// IsSuccess returns true if the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// ContentType returns the Content-Type header.
func (r *Response) ContentType() string {
	return r.Header.Get("Content-Type")
}

// HTTP rebuilds an *http.Response over the captured body.
func (r *Response) HTTP() *http.Response {
	proto := r.Proto
	if proto == "" {
		proto = "HTTP/1.1"
	}
	major, minor, ok := http.ParseHTTPVersion(proto)
	if !ok {
		major, minor = 1, 1
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", r.StatusCode, r.Reason),
		StatusCode:    r.StatusCode,
		Proto:         proto,
		ProtoMajor:    major,
		ProtoMinor:    minor,
		Header:        r.Header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(r.Body)),
		ContentLength: int64(len(r.Body)),
	}
}
