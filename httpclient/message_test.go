package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

func TestRequestMessage_URL(t *testing.T) {
	tests := []struct {
		name  string
		base  string
		path  string
		query url.Values
		want  string
	}{
		{"relative", "https://api.example.com/", "users/42", nil, "https://api.example.com/users/42"},
		{"nested base", "https://api.example.com/v1/", "users", nil, "https://api.example.com/v1/users"},
		{"root relative", "https://api.example.com/v1/", "/health", nil, "https://api.example.com/health"},
		{"absolute path wins", "https://api.example.com/", "https://other.example.com/x", nil, "https://other.example.com/x"},
		{"query merged", "https://api.example.com/", "users?sort=asc", url.Values{"q": {"ada"}}, "https://api.example.com/users?q=ada&sort=asc"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := NewRequestMessage()
			m.BaseURL = mustURL(t, tc.base)
			m.Path = tc.path
			for k, vs := range tc.query {
				m.Query[k] = vs
			}
			u, err := m.URL()
			if err != nil {
				t.Fatalf("URL: %v", err)
			}
			if u.String() != tc.want {
				t.Errorf("got %s, want %s", u, tc.want)
			}
		})
	}
}

func TestRequestMessage_ReplacePath(t *testing.T) {
	m := NewRequestMessage()
	m.BaseURL = mustURL(t, "https://api.example.com/")
	m.Path = "users/{id}/files/{name}"

	if !m.ReplacePath("id", "42") {
		t.Fatal("expected id placeholder")
	}
	if m.ReplacePath("missing", "x") {
		t.Fatal("unexpected placeholder")
	}
	if _, err := m.URL(); err == nil || !strings.Contains(err.Error(), "{name}") {
		t.Fatalf("expected unresolved placeholder error, got %v", err)
	}

	m.ReplacePath("name", "a b/c")
	u, err := m.URL()
	if err != nil {
		t.Fatalf("URL: %v", err)
	}
	if got := u.EscapedPath(); got != "/users/42/files/a%20b%2Fc" {
		t.Errorf("unexpected escaped path %s", got)
	}
}

func TestRequestMessage_RelativeWithoutBase(t *testing.T) {
	m := NewRequestMessage()
	m.Path = "users"
	if _, err := m.URL(); !hasCode(err, ErrCodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRequestMessage_Build(t *testing.T) {
	m := NewRequestMessage()
	m.Method = http.MethodPost
	m.BaseURL = mustURL(t, "https://api.example.com/")
	m.Path = "users"
	m.Header.Set("X-Trace", "t1")
	m.SetBody([]byte(`{"id":"1"}`), "application/json")

	req, err := m.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if req.Method != http.MethodPost || req.URL.String() != "https://api.example.com/users" {
		t.Errorf("unexpected request %s %s", req.Method, req.URL)
	}
	if req.Header.Get("Content-Type") != "application/json" || req.Header.Get("X-Trace") != "t1" {
		t.Errorf("unexpected headers %v", req.Header)
	}
	body, _ := io.ReadAll(req.Body)
	if string(body) != `{"id":"1"}` {
		t.Errorf("unexpected body %s", body)
	}

	// buffered bodies can be rebuilt
	req2, _ := m.Build(context.Background())
	body2, _ := io.ReadAll(req2.Body)
	if string(body2) != `{"id":"1"}` {
		t.Errorf("second build lost the body")
	}
}

func TestRequestMessage_Multipart(t *testing.T) {
	m := NewRequestMessage()
	m.Method = http.MethodPost
	m.BaseURL = mustURL(t, "https://api.example.com/")
	m.Path = "upload"
	m.SetBody([]byte("replaced"), "text/plain")
	mp := m.Multipart()
	mp.AddField("title", "report")
	mp.AddFile(FileField{FieldName: "file", FileName: `q"1.csv`, Data: []byte("a,b")})

	req, err := m.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		t.Fatalf("ParseMultipartForm: %v", err)
	}
	if req.FormValue("title") != "report" {
		t.Errorf("missing title field")
	}
	f, hdr, err := req.FormFile("file")
	if err != nil {
		t.Fatalf("FormFile: %v", err)
	}
	defer f.Close()
	data, _ := io.ReadAll(f)
	if string(data) != "a,b" || hdr.Filename != `q"1.csv` {
		t.Errorf("unexpected file %q %q", hdr.Filename, data)
	}
}

func TestResponse_HTTP(t *testing.T) {
	r := &Response{StatusCode: 404, Reason: "Not Found", Proto: "HTTP/2.0", Header: http.Header{"X": {"1"}}, Body: []byte("nope")}
	hr := r.HTTP()
	if hr.Status != "404 Not Found" || hr.ProtoMajor != 2 {
		t.Errorf("unexpected %q major=%d", hr.Status, hr.ProtoMajor)
	}
	body, _ := io.ReadAll(hr.Body)
	if string(body) != "nope" || hr.ContentLength != 4 {
		t.Errorf("unexpected body %q", body)
	}
	if r.IsSuccess() {
		t.Error("404 is not success")
	}
}
