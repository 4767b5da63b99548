// Package jsoncodec registers a JSON encoding.Codec for use with a
// hand-authored grpc.ServiceDesc, in place of a protoc-generated codec.
package jsoncodec

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// Name is the codec name negotiated over the grpc wire (content-subtype).
const Name = "json"

// Codec marshals gRPC messages as JSON instead of protobuf.
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (Codec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (Codec) Name() string {
	return Name
}

func init() {
	encoding.RegisterCodec(Codec{})
}
