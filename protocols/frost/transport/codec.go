package transport

import (
	"github.com/fxamacker/cbor/v2"
	"google.golang.org/grpc/encoding"
)

// CodecName is the content subtype under which messages travel.
const CodecName = "cbor"

// codec encodes gRPC messages with cbor, so that the protocol types can be
// sent as they are without a protobuf mirror.
type codec struct{}

func (codec) Marshal(v any) ([]byte, error) { return cbor.Marshal(v) }

func (codec) Unmarshal(data []byte, v any) error { return cbor.Unmarshal(data, v) }

func (codec) Name() string { return CodecName }

func init() {
	encoding.RegisterCodec(codec{})
}
