// Package grpc holds the gRPC plumbing shared by registry servers and clients.
package grpc

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content subtype for JSON-encoded messages
// ("application/grpc+json").
const CodecName = "json"

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

func init() {
	encoding.RegisterCodec(JSONCodec{})
}

// JSONCodec encodes plain Go request and response structs as JSON.
type JSONCodec struct{}

// Marshal implements encoding.Codec.
func (JSONCodec) Marshal(v any) ([]byte, error) {
	data, err := jsonAPI.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("json codec marshal %T: %w", v, err)
	}
	return data, nil
}

// Unmarshal implements encoding.Codec. An empty payload leaves v untouched.
func (JSONCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := jsonAPI.Unmarshal(data, v); err != nil {
		return fmt.Errorf("json codec unmarshal %T: %w", v, err)
	}
	return nil
}

// Name implements encoding.Codec.
func (JSONCodec) Name() string {
	return CodecName
}
