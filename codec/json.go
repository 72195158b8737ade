package codec

import "github.com/bytedance/sonic"

var jsonAPI = sonic.ConfigStd

// JSON encodes with sonic using encoding/json compatible settings.
type JSON struct{}

func (JSON) Name() string        { return "json" }
func (JSON) ContentType() string { return "application/json" }

func (JSON) Marshal(v any) ([]byte, error) { return jsonAPI.Marshal(v) }

func (JSON) Unmarshal(data []byte, v any) error { return jsonAPI.Unmarshal(data, v) }

// MarshalJSON is shorthand for JSON{}.Marshal.
func MarshalJSON(v any) ([]byte, error) { return jsonAPI.Marshal(v) }

// UnmarshalJSON is shorthand for JSON{}.Unmarshal.
func UnmarshalJSON(data []byte, v any) error { return jsonAPI.Unmarshal(data, v) }
