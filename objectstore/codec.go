package objectstore

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

// Every encoded value starts with a one-byte frame header.
const (
	frameRaw  byte = 0x00
	frameZstd byte = 0x01
)

// Values at or above this size are zstd-compressed when that saves space.
const compressThreshold = 1024

var (
	encMode cbor.EncMode
	decMode cbor.DecMode

	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("objectstore: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("objectstore: CBOR decoder initialization failed: " + err.Error())
	}

	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("objectstore: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("objectstore: zstd decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v as framed CBOR.
func Marshal(v any) ([]byte, error) {
	payload, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cbor encode: %w", err)
	}

	if len(payload) >= compressThreshold {
		compressed := zstdEncoder.EncodeAll(payload, make([]byte, 1, len(payload)/2+1))
		if len(compressed) < len(payload) {
			compressed[0] = frameZstd
			return compressed, nil
		}
	}

	framed := make([]byte, 0, len(payload)+1)
	framed = append(framed, frameRaw)
	return append(framed, payload...), nil
}

// Unmarshal decodes framed CBOR produced by Marshal into v.
func Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("cbor decode: empty value")
	}

	payload := data[1:]
	switch data[0] {
	case frameRaw:
	case frameZstd:
		decompressed, err := zstdDecoder.DecodeAll(payload, nil)
		if err != nil {
			return fmt.Errorf("zstd decompress: %w", err)
		}
		payload = decompressed
	default:
		return fmt.Errorf("cbor decode: unknown frame header 0x%02x", data[0])
	}

	if err := decMode.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("cbor decode: %w", err)
	}
	return nil
}
