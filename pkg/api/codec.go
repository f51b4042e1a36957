// Package api defines the tableside.v1 Connect services: message types, procedure
// names, handler constructors and clients. Messages are plain Go structs carried as
// JSON, so browsers and terminals can call the services with fetch and no codegen.
package api

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// Codec encodes messages with encoding/json. It registers under the name "json",
// replacing Connect's protobuf JSON codec for these services.
type Codec struct{}

func (Codec) Name() string { return "json" }

func (Codec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (Codec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
}

func clientOptions(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
}
