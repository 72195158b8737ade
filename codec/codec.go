// Package codec converts values to and from request and response bodies.
//
// Codecs are looked up by name (from return and params tags) or by media
// type (from a response Content-Type). JSON is the fallback.
package codec

import (
	"fmt"
	"mime"
	"strings"
	"sync"
)

// Codec encodes and decodes one wire format.
type Codec interface {
	// Name is the short name used in tags, e.g. "json".
	Name() string
	// ContentType is the media type written on outbound bodies.
	ContentType() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// Registry maps names and media types to codecs. The zero value is empty;
// use NewRegistry for one holding the built-in codecs.
type Registry struct {
	mu      sync.RWMutex
	byName  map[string]Codec
	byMedia map[string]Codec
}

// NewRegistry returns a registry with JSON, XML, YAML, protobuf and form codecs.
func NewRegistry() *Registry {
	r := &Registry{}
	for _, c := range []Codec{JSON{}, XML{}, YAML{}, Proto{}, Form{}} {
		r.Register(c)
	}
	// common aliases for the same formats
	r.alias("text/json", JSON{})
	r.alias("text/xml", XML{})
	r.alias("application/yaml", YAML{})
	r.alias("text/yaml", YAML{})
	r.alias("application/protobuf", Proto{})
	return r
}

// Register adds or replaces a codec under its name and content type.
func (r *Registry) Register(c Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byName == nil {
		r.byName = map[string]Codec{}
		r.byMedia = map[string]Codec{}
	}
	r.byName[strings.ToLower(c.Name())] = c
	r.byMedia[mediaType(c.ContentType())] = c
}

func (r *Registry) alias(media string, c Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byMedia[media] = c
}

// ByName returns the codec registered under name.
func (r *Registry) ByName(name string) (Codec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("codec: unknown codec %q", name)
	}
	return c, nil
}

// ForContentType returns the codec for a Content-Type header value,
// recognising +json and +xml structured suffixes. ok is false when the
// media type is unknown.
func (r *Registry) ForContentType(contentType string) (Codec, bool) {
	media := mediaType(contentType)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.byMedia[media]; ok {
		return c, true
	}
	switch {
	case strings.HasSuffix(media, "+json"):
		return r.byName["json"], r.byName["json"] != nil
	case strings.HasSuffix(media, "+xml"):
		return r.byName["xml"], r.byName["xml"] != nil
	}
	return nil, false
}

func mediaType(contentType string) string {
	media, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return media
}
