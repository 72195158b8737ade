package contract

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Tag keys.
const (
	TagHost           = "host"
	TagHeader         = "header"
	TagTimeout        = "timeout"
	TagFilter         = "filter"
	TagHook           = "hook"
	TagCache          = "cache"
	TagReturn         = "return"
	TagValidateResult = "validate-result"
	TagParams         = "params"
	TagValidate       = "validate"
)

// Parameter kinds accepted by the params tag.
const (
	KindPath      = "path"
	KindQuery     = "query"
	KindPathQuery = "pathquery"
	KindHeader    = "header"
	KindJSON      = "json"
	KindXML       = "xml"
	KindYAML      = "yaml"
	KindProto     = "proto"
	KindForm      = "form"
	KindFormData  = "formdata"
	KindFile      = "file"
	KindRaw       = "raw"
	KindTimeout   = "timeout"
)

// Methods are the tag keys that declare the HTTP method of an operation.
var Methods = []string{
	http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
	http.MethodDelete, http.MethodHead, http.MethodOptions,
}

// ParamBinding is one kind of a parameter spec.
type ParamBinding struct {
	Kind  string
	Alias string
}

// ParamSpec is one entry of a params tag.
type ParamSpec struct {
	Name     string
	Bindings []ParamBinding
}

// ParseParams parses `name[:kind[=alias][+kind[=alias]...]]` entries
// separated by ';'.
func ParseParams(tag string) ([]ParamSpec, error) {
	var specs []ParamSpec
	for _, raw := range splitList(tag, ";") {
		name, kinds, hasKinds := strings.Cut(raw, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("params: empty name in %q", raw)
		}
		spec := ParamSpec{Name: name}
		if hasKinds {
			for _, k := range strings.Split(kinds, "+") {
				kind, alias, _ := strings.Cut(strings.TrimSpace(k), "=")
				kind = strings.ToLower(strings.TrimSpace(kind))
				if kind == "" {
					return nil, fmt.Errorf("params: empty kind for %s", name)
				}
				spec.Bindings = append(spec.Bindings, ParamBinding{Kind: kind, Alias: strings.TrimSpace(alias)})
			}
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// ParseRules parses `name=rules` entries separated by ';'.
func ParseRules(tag string) (map[string]string, error) {
	rules := make(map[string]string)
	for _, raw := range splitList(tag, ";") {
		name, rule, ok := strings.Cut(raw, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" || strings.TrimSpace(rule) == "" {
			return nil, fmt.Errorf("validate: expected name=rules, got %q", raw)
		}
		rules[name] = strings.TrimSpace(rule)
	}
	return rules, nil
}

// ParseCache parses `ttl[,read-only|write-only][,store=name][,vary=H1|H2]`.
func ParseCache(tag string) (CacheSpec, error) {
	parts := splitList(tag, ",")
	if len(parts) == 0 {
		return CacheSpec{}, fmt.Errorf("cache: missing ttl")
	}
	ttl, err := time.ParseDuration(parts[0])
	if err != nil || ttl <= 0 {
		return CacheSpec{}, fmt.Errorf("cache: invalid ttl %q", parts[0])
	}
	spec := CacheSpec{TTL: ttl, Read: true, Write: true}
	for _, p := range parts[1:] {
		key, val, _ := strings.Cut(p, "=")
		switch strings.ToLower(key) {
		case "read-only":
			spec.Write = false
		case "write-only":
			spec.Read = false
		case "store":
			spec.Store = val
		case "vary":
			for _, h := range strings.Split(val, "|") {
				if h = strings.TrimSpace(h); h != "" {
					spec.Vary = append(spec.Vary, http.CanonicalHeaderKey(h))
				}
			}
		default:
			return CacheSpec{}, fmt.Errorf("cache: unknown option %q", p)
		}
	}
	if !spec.Read && !spec.Write {
		return CacheSpec{}, fmt.Errorf("cache: read-only and write-only are exclusive")
	}
	return spec, nil
}

// ParseReturn parses `format[,allow-error]`. An empty tag means auto.
func ParseReturn(tag string) (ReturnSpec, error) {
	spec := ReturnSpec{Format: FormatAuto}
	parts := splitList(tag, ",")
	if len(parts) == 0 {
		return spec, nil
	}
	switch f := strings.ToLower(parts[0]); f {
	case FormatAuto, FormatJSON, FormatXML, FormatYAML, FormatProto, FormatForm, FormatRaw:
		spec.Format = f
	case "allow-error":
		spec.AllowError = true
	default:
		return spec, fmt.Errorf("return: unknown format %q", parts[0])
	}
	for _, p := range parts[1:] {
		if strings.ToLower(p) != "allow-error" {
			return spec, fmt.Errorf("return: unknown option %q", p)
		}
		spec.AllowError = true
	}
	return spec, nil
}

// ParseHeaders splits `Name: value; Name: value` into pairs.
func ParseHeaders(tag string) ([][2]string, error) {
	var pairs [][2]string
	for _, raw := range splitList(tag, ";") {
		name, val, ok := strings.Cut(raw, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("header: expected Name: value, got %q", raw)
		}
		pairs = append(pairs, [2]string{name, strings.TrimSpace(val)})
	}
	return pairs, nil
}

// ParseBool parses an optional boolean tag value.
func ParseBool(tag string) (bool, error) {
	if tag == "" {
		return false, nil
	}
	return strconv.ParseBool(tag)
}

func splitList(s, sep string) []string {
	var out []string
	for _, p := range strings.Split(s, sep) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
