package codec

import (
	"net/url"

	"github.com/ajg/form"
)

// Form encodes structs and maps as application/x-www-form-urlencoded.
// Nested fields use dotted keys.
type Form struct{}

func (Form) Name() string        { return "form" }
func (Form) ContentType() string { return "application/x-www-form-urlencoded" }

func (Form) Marshal(v any) ([]byte, error) {
	s, err := form.EncodeToString(v)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

func (Form) Unmarshal(data []byte, v any) error {
	return form.DecodeString(v, string(data))
}

// Values flattens v into url.Values the way Form would encode it.
func Values(v any) (url.Values, error) {
	return form.EncodeToValues(v)
}
