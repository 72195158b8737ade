package codec

import "encoding/xml"

// XML encodes with encoding/xml.
type XML struct{}

func (XML) Name() string        { return "xml" }
func (XML) ContentType() string { return "application/xml" }

func (XML) Marshal(v any) ([]byte, error) { return xml.Marshal(v) }

func (XML) Unmarshal(data []byte, v any) error { return xml.Unmarshal(data, v) }
