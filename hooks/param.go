package hooks

import (
	"encoding"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"google.golang.org/protobuf/proto"

	"github.com/kbukum/apikit/codec"
	"github.com/kbukum/apikit/contract"
	"github.com/kbukum/apikit/httpclient"
)

// binding is the common part of parameter hooks.
type binding struct {
	multiple
	// Alias replaces the parameter name on the wire.
	Alias string
}

func (b binding) name(arg contract.Argument) string {
	if b.Alias != "" {
		return b.Alias
	}
	return arg.Name
}

// Path fills the {name} placeholder of the path.
type Path struct{ binding }

func (*Path) CheckType(t reflect.Type) error { return requireScalar(t) }

func (p *Path) OnParameter(cc *contract.CallContext, arg contract.Argument) error {
	name := p.name(arg)
	vals, flat, err := stringsOf(arg.Value)
	if err != nil {
		return err
	}
	if flat {
		return fmt.Errorf("path parameter %s must be a scalar", name)
	}
	if vals == nil {
		return fmt.Errorf("path parameter %s is nil", name)
	}
	if !cc.Request.ReplacePath(name, strings.Join(vals, ",")) {
		return fmt.Errorf("path %q has no {%s} placeholder", cc.Request.Path, name)
	}
	return nil
}

// Query adds query entries. Structs and maps are flattened into one entry
// per field.
type Query struct{ binding }

func (q *Query) OnParameter(cc *contract.CallContext, arg contract.Argument) error {
	return addValues(cc.Request.Query, q.name(arg), arg.Value)
}

// PathQuery fills a matching path placeholder, or adds query entries.
type PathQuery struct{ binding }

func (p *PathQuery) OnParameter(cc *contract.CallContext, arg contract.Argument) error {
	name := p.name(arg)
	if cc.Request.HasPlaceholder(name) {
		return (&Path{p.binding}).OnParameter(cc, arg)
	}
	return addValues(cc.Request.Query, name, arg.Value)
}

// HeaderParam sends the argument as a header. A map sends one header per key.
type HeaderParam struct{ binding }

func (h *HeaderParam) OnParameter(cc *contract.CallContext, arg contract.Argument) error {
	vals := url.Values{}
	if err := addValues(vals, h.name(arg), arg.Value); err != nil {
		return err
	}
	for k, vs := range vals {
		for _, v := range vs {
			cc.Request.Header.Add(k, v)
		}
	}
	return nil
}

// Body encodes the argument with a named codec.
type Body struct {
	binding
	Format string
}

func (b *Body) CheckType(t reflect.Type) error {
	if b.Format == contract.FormatProto && !t.Implements(reflect.TypeFor[proto.Message]()) {
		return fmt.Errorf("%s does not implement proto.Message", t)
	}
	return nil
}

func (b *Body) OnParameter(cc *contract.CallContext, arg contract.Argument) error {
	if isNil(arg.Value) {
		return nil
	}
	c, err := cc.Codecs.ByName(b.Format)
	if err != nil {
		return err
	}
	data, err := c.Marshal(arg.Value)
	if err != nil {
		return fmt.Errorf("encode %s body: %w", b.Format, err)
	}
	cc.Request.SetBody(data, c.ContentType())
	return nil
}

const propForm = "hooks.form"

// FormBody sends url-encoded fields. Several form parameters share one body.
type FormBody struct{ binding }

func (f *FormBody) OnParameter(cc *contract.CallContext, arg contract.Argument) error {
	form, _ := cc.Properties[propForm].(url.Values)
	if form == nil {
		form = url.Values{}
		cc.Properties.Set(propForm, form)
	}
	if err := addValues(form, f.name(arg), arg.Value); err != nil {
		return err
	}
	cc.Request.SetBody([]byte(form.Encode()), codec.Form{}.ContentType())
	return nil
}

// FormData adds multipart fields.
type FormData struct{ binding }

func (f *FormData) OnParameter(cc *contract.CallContext, arg contract.Argument) error {
	vals := url.Values{}
	if err := addValues(vals, f.name(arg), arg.Value); err != nil {
		return err
	}
	mp := cc.Request.Multipart()
	for k, vs := range vals {
		for _, v := range vs {
			mp.AddField(k, v)
		}
	}
	return nil
}

var (
	readerType    = reflect.TypeFor[io.Reader]()
	bytesType     = reflect.TypeFor[[]byte]()
	stringType    = reflect.TypeFor[string]()
	fileFieldType = reflect.TypeFor[httpclient.FileField]()
	durationType  = reflect.TypeFor[time.Duration]()
)

// File adds a multipart file. Accepts httpclient.FileField, []byte,
// *os.File or any io.Reader.
type File struct{ binding }

func (*File) CheckType(t reflect.Type) error {
	switch {
	case t == bytesType, t == fileFieldType, t == reflect.PointerTo(fileFieldType), t.Implements(readerType):
		return nil
	}
	return fmt.Errorf("%s cannot be sent as a file", t)
}

func (f *File) OnParameter(cc *contract.CallContext, arg contract.Argument) error {
	if isNil(arg.Value) {
		return nil
	}
	name := f.name(arg)
	field := httpclient.FileField{FieldName: name, FileName: name}
	switch v := arg.Value.(type) {
	case httpclient.FileField:
		field = v
	case *httpclient.FileField:
		field = *v
	case []byte:
		field.Data = v
	case *os.File:
		field.FileName, field.Reader = filepath.Base(v.Name()), v
	case io.Reader:
		field.Reader = v
	default:
		return fmt.Errorf("%T cannot be sent as a file", arg.Value)
	}
	if field.FieldName == "" {
		field.FieldName = name
	}
	if field.Reader != nil {
		r, err := cc.Action.Reader(arg.Name, field.Reader)
		if err != nil {
			return err
		}
		field.Reader = r
	}
	cc.Request.Multipart().AddFile(field)
	return nil
}

// Raw sends the argument unchanged. Alias is the content type.
type Raw struct{ binding }

func (*Raw) CheckType(t reflect.Type) error {
	if t == bytesType || t == stringType || t.Implements(readerType) {
		return nil
	}
	return fmt.Errorf("%s cannot be sent as a raw body", t)
}

func (r *Raw) OnParameter(cc *contract.CallContext, arg contract.Argument) error {
	ct := r.Alias
	switch v := arg.Value.(type) {
	case nil:
		return nil
	case []byte:
		cc.Request.SetBody(v, or(ct, "application/octet-stream"))
	case string:
		cc.Request.SetBody([]byte(v), or(ct, "text/plain; charset=utf-8"))
	case io.Reader:
		body, err := cc.Action.Reader(arg.Name, v)
		if err != nil {
			return err
		}
		cc.Request.SetBodyReader(body, or(ct, "application/octet-stream"))
	default:
		return fmt.Errorf("%T cannot be sent as a raw body", arg.Value)
	}
	return nil
}

// TimeoutParam takes the per-call timeout from a time.Duration argument.
type TimeoutParam struct{ binding }

func (*TimeoutParam) CheckType(t reflect.Type) error {
	if t != durationType {
		return fmt.Errorf("%s is not a time.Duration", t)
	}
	return nil
}

func (*TimeoutParam) OnParameter(cc *contract.CallContext, arg contract.Argument) error {
	if d, ok := arg.Value.(time.Duration); ok && d > 0 {
		cc.Timeout = d
	}
	return nil
}

func or(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func requireScalar(t reflect.Type) error {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Implements(reflect.TypeFor[encoding.TextMarshaler]()) {
		return nil
	}
	switch t.Kind() {
	case reflect.Struct, reflect.Map:
		return fmt.Errorf("%s cannot be bound to a path segment", t)
	}
	return nil
}

func addValues(dst url.Values, name string, v any) error {
	vals, flat, err := stringsOf(v)
	if err != nil {
		return err
	}
	if !flat {
		for _, s := range vals {
			dst[name] = append(dst[name], s)
		}
		return nil
	}
	fields, err := codec.Values(v)
	if err != nil {
		return fmt.Errorf("flatten %s: %w", name, err)
	}
	for k, vs := range fields {
		dst[k] = append(dst[k], vs...)
	}
	return nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// stringsOf formats scalars and slices of scalars. flat is true for
// structs and maps, which the caller flattens. A nil value yields nil.
func stringsOf(v any) (vals []string, flat bool, err error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false, nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil, false, nil
	}
	if rv.Kind() == reflect.Struct || rv.Kind() == reflect.Map {
		if tm, ok := rv.Interface().(encoding.TextMarshaler); ok {
			b, err := tm.MarshalText()
			return []string{string(b)}, false, err
		}
		return nil, true, nil
	}
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		if rv.Type().Elem().Kind() == reflect.Uint8 && rv.Kind() == reflect.Slice {
			return []string{string(rv.Bytes())}, false, nil
		}
		out := make([]string, 0, rv.Len())
		for i := range rv.Len() {
			s, err := scalar(rv.Index(i))
			if err != nil {
				return nil, false, err
			}
			out = append(out, s)
		}
		return out, false, nil
	}
	s, err := scalar(rv)
	if err != nil {
		return nil, false, err
	}
	return []string{s}, false, nil
}

func scalar(rv reflect.Value) (string, error) {
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return "", nil
		}
		rv = rv.Elem()
	}
	if rv.CanInterface() {
		if tm, ok := rv.Interface().(encoding.TextMarshaler); ok {
			b, err := tm.MarshalText()
			return string(b), err
		}
	}
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 32), nil
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), nil
	}
	return "", fmt.Errorf("%s cannot be formatted as a string", rv.Type())
}
