// Package httpclient is the transport layer under generated clients.
//
// A RequestMessage is assembled by hooks (method, base address, path
// placeholders, query, headers, body) and turned into an *http.Request at
// send time. A Transport sends it and returns a fully read Response. The
// default Transport is Handle, an *http.Client over its own connection pool,
// optionally upgraded to HTTP/2 through golang.org/x/net/http2.
//
// Handles are pooled and rotated by the lifecycle package; callers never
// share one *http.Transport across handle generations, so DNS and
// connection state are refreshed when a handle expires.
//
//	h, err := httpclient.NewHandle(httpclient.HandleConfig{MaxConnsPerHost: 16})
//	msg := httpclient.NewRequestMessage()
//	msg.Method = http.MethodGet
//	msg.BaseURL, _ = url.Parse("https://api.example.com/")
//	msg.Path = "users/{id}"
//	msg.ReplacePath("id", "42")
//	req, err := msg.Build(ctx)
//	resp, err := h.Send(ctx, req)
package httpclient
