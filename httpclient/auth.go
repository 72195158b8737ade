package httpclient

import (
	"encoding/base64"
)

// AuthType identifies the authentication method.
type AuthType int

const (
	// AuthNone disables authentication.
	AuthNone AuthType = iota
	// AuthBearer sends "Authorization: Bearer <token>".
	AuthBearer
	// AuthBasic sends HTTP Basic credentials.
	AuthBasic
	// AuthAPIKey sends a key in a header or query parameter.
	AuthAPIKey
	// AuthCustom runs a caller-supplied function.
	AuthCustom
)

// AuthConfig configures request authentication.
type AuthConfig struct {
	Type     AuthType
	Token    string
	Username string
	Password string
	Key      string
	// In is "header" (default) or "query" for AuthAPIKey.
	In string
	// Name is the header or query parameter name. Defaults to X-API-Key.
	Name string
	// Apply modifies the message for AuthCustom.
	Apply func(*RequestMessage)
}

// BearerAuth creates a bearer token auth config.
func BearerAuth(token string) *AuthConfig {
	return &AuthConfig{Type: AuthBearer, Token: token}
}

// BasicAuth creates a basic auth config.
func BasicAuth(username, password string) *AuthConfig {
	return &AuthConfig{Type: AuthBasic, Username: username, Password: password}
}

// APIKeyAuth creates an API key auth config sent in the X-API-Key header.
func APIKeyAuth(key string) *AuthConfig {
	return &AuthConfig{Type: AuthAPIKey, Key: key, In: "header", Name: "X-API-Key"}
}

// APIKeyAuthQuery creates an API key auth config sent as a query parameter.
func APIKeyAuthQuery(key, paramName string) *AuthConfig {
	return &AuthConfig{Type: AuthAPIKey, Key: key, In: "query", Name: paramName}
}

// CustomAuth creates an auth config running fn.
func CustomAuth(fn func(*RequestMessage)) *AuthConfig {
	return &AuthConfig{Type: AuthCustom, Apply: fn}
}

// ApplyTo adds credentials to m. A nil config does nothing.
func (a *AuthConfig) ApplyTo(m *RequestMessage) {
	if a == nil {
		return
	}
	switch a.Type {
	case AuthBearer:
		m.Header.Set("Authorization", "Bearer "+a.Token)
	case AuthBasic:
		cred := base64.StdEncoding.EncodeToString([]byte(a.Username + ":" + a.Password))
		m.Header.Set("Authorization", "Basic "+cred)
	case AuthAPIKey:
		name := a.Name
		if name == "" {
			name = "X-API-Key"
		}
		if a.In == "query" {
			m.Query.Set(name, a.Key)
		} else {
			m.Header.Set(name, a.Key)
		}
	case AuthCustom:
		if a.Apply != nil {
			a.Apply(m)
		}
	}
}
