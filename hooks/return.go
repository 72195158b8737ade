package hooks

import (
	"fmt"
	"net/http"
	"reflect"

	"github.com/kbukum/apikit/codec"
	"github.com/kbukum/apikit/contract"
	"github.com/kbukum/apikit/httpclient"
)

var (
	responseType     = reflect.TypeFor[*httpclient.Response]()
	httpResponseType = reflect.TypeFor[*http.Response]()
)

// Return decodes the response body into the declared result type.
// Results typed *httpclient.Response, *http.Response, []byte or string
// receive the raw response whatever the format.
type Return struct {
	single
	Spec contract.ReturnSpec
}

func (*Return) HookKey() string { return contract.TagReturn }

func (r *Return) OnReturn(cc *contract.CallContext) (any, error) {
	rt := cc.Action.Return.Type
	resp := cc.Response
	if rt == nil || resp == nil {
		return nil, nil
	}
	switch rt {
	case responseType:
		return resp, nil
	case httpResponseType:
		return resp.HTTP(), nil
	case bytesType:
		return resp.Body, nil
	case stringType:
		return string(resp.Body), nil
	}
	if r.Spec.Format == contract.FormatRaw {
		return nil, fmt.Errorf("raw results must be []byte, string or a response, not %s", rt)
	}
	if len(resp.Body) == 0 {
		return reflect.Zero(rt).Interface(), nil
	}

	c, err := r.codec(cc)
	if err != nil {
		return nil, err
	}
	var target reflect.Value
	if rt.Kind() == reflect.Pointer {
		target = reflect.New(rt.Elem())
	} else {
		target = reflect.New(rt)
	}
	if err := c.Unmarshal(resp.Body, target.Interface()); err != nil {
		return nil, fmt.Errorf("decode %s response into %s: %w", c.Name(), rt, err)
	}
	if rt.Kind() == reflect.Pointer {
		return target.Interface(), nil
	}
	return target.Elem().Interface(), nil
}

func (r *Return) codec(cc *contract.CallContext) (codec.Codec, error) {
	if r.Spec.Format != contract.FormatAuto && r.Spec.Format != "" {
		return cc.Codecs.ByName(r.Spec.Format)
	}
	if c, ok := cc.Codecs.ForContentType(cc.Response.ContentType()); ok {
		return c, nil
	}
	return cc.Codecs.ByName(contract.FormatJSON)
}
