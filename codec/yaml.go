package codec

import "gopkg.in/yaml.v3"

// YAML encodes with yaml.v3.
type YAML struct{}

func (YAML) Name() string        { return "yaml" }
func (YAML) ContentType() string { return "application/x-yaml" }

func (YAML) Marshal(v any) ([]byte, error) { return yaml.Marshal(v) }

func (YAML) Unmarshal(data []byte, v any) error { return yaml.Unmarshal(data, v) }
