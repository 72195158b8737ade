package cache

import (
	"net/http"
	"strings"
	"time"

	"github.com/kbukum/apikit/codec"
	"github.com/kbukum/apikit/httpclient"
)

// Entry is a stored response snapshot.
type Entry struct {
	Key            string              `json:"key"`
	StatusCode     int                 `json:"status_code"`
	ReasonPhrase   string              `json:"reason_phrase"`
	Headers        map[string][]string `json:"headers"`
	ContentHeaders map[string][]string `json:"content_headers"`
	Body           []byte              `json:"body"`
	Version        string              `json:"version"`
	ExpiresAt      time.Time           `json:"expires_at"`
}

// FromResponse snapshots resp under key. ttl <= 0 means the entry never
// expires on its own.
func FromResponse(key string, resp *httpclient.Response, ttl time.Duration, now time.Time) *Entry {
	e := &Entry{
		Key:            key,
		StatusCode:     resp.StatusCode,
		ReasonPhrase:   resp.Reason,
		Headers:        map[string][]string{},
		ContentHeaders: map[string][]string{},
		Body:           append([]byte(nil), resp.Body...),
		Version:        resp.Proto,
	}
	if ttl > 0 {
		e.ExpiresAt = now.Add(ttl)
	}
	for k, v := range resp.Header {
		dst := e.Headers
		if isContentHeader(k) {
			dst = e.ContentHeaders
		}
		dst[k] = append([]string(nil), v...)
	}
	return e
}

// Expired reports whether the entry is past its expiration at now.
func (e *Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// TTL returns the time left before expiry, or 0 for entries without one.
func (e *Entry) TTL(now time.Time) time.Duration {
	if e.ExpiresAt.IsZero() {
		return 0
	}
	return max(e.ExpiresAt.Sub(now), time.Millisecond)
}

// Response rebuilds a response from the snapshot.
func (e *Entry) Response() *httpclient.Response {
	h := make(http.Header, len(e.Headers)+len(e.ContentHeaders))
	for k, v := range e.Headers {
		h[k] = append([]string(nil), v...)
	}
	for k, v := range e.ContentHeaders {
		h[k] = append([]string(nil), v...)
	}
	return &httpclient.Response{
		StatusCode: e.StatusCode,
		Reason:     e.ReasonPhrase,
		Proto:      e.Version,
		Header:     h,
		Body:       append([]byte(nil), e.Body...),
		FromCache:  true,
	}
}

func isContentHeader(name string) bool {
	return strings.HasPrefix(http.CanonicalHeaderKey(name), "Content-") || strings.EqualFold(name, "Expires") || strings.EqualFold(name, "Last-Modified")
}

// Serializer turns entries into bytes for byte-oriented backends.
// The key lets implementations bind data to the slot it is stored in.
type Serializer interface {
	Encode(key string, e *Entry) ([]byte, error)
	Decode(key string, data []byte) (*Entry, error)
}

type jsonSerializer struct{}

// JSON is the default Serializer.
var JSON Serializer = jsonSerializer{}

func (jsonSerializer) Encode(_ string, e *Entry) ([]byte, error) { return codec.MarshalJSON(e) }

func (jsonSerializer) Decode(_ string, data []byte) (*Entry, error) {
	var e Entry
	if err := codec.UnmarshalJSON(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
