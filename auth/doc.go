// Package auth supplies credentials to outgoing calls.
//
// The core contract is TokenSource. Generated clients never talk to an
// identity provider directly; an Auth hook or a TokenFilter asks a source
// for the current token and attaches it to the request.
//
//   - Static          fixed token, e.g. an API key from configuration
//   - CachedSource    wraps any source and refreshes shortly before expiry
//   - JWTSource       signs short-lived service tokens with golang-jwt
//   - Registry        named sources, referenced from contract tags
//
// Example:
//
//	src, _ := auth.NewJWTSource(&auth.JWTConfig{Secret: "s3cret", Subject: "billing"})
//	f, _ := apikit.New(cfg, apikit.WithTokenSource("billing", src))
//
//	type BillingAPI struct {
//		apikit.Client `filter:"billing"`
//		...
//	}
package auth
