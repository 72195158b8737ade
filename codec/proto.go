package codec

import (
	"fmt"

	"google.golang.org/protobuf/proto"
)

// Proto encodes protobuf messages in the binary wire format.
type Proto struct{}

func (Proto) Name() string        { return "proto" }
func (Proto) ContentType() string { return "application/x-protobuf" }

func (Proto) Marshal(v any) ([]byte, error) {
	m, ok := v.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("codec: %T is not a proto.Message", v)
	}
	return proto.Marshal(m)
}

func (Proto) Unmarshal(data []byte, v any) error {
	m, ok := v.(proto.Message)
	if !ok {
		return fmt.Errorf("codec: %T is not a proto.Message", v)
	}
	return proto.Unmarshal(data, m)
}
