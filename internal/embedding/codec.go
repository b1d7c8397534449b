// Package embedding stores and produces float32 embedding vectors.
//
// WIRE FORMAT:
// A vector is persisted as len(vec)*4 bytes, each component written as the
// little-endian IEEE-754 bits of a float32. Decode(Encode(v)) reproduces v
// bit-for-bit, NaN payloads included.
package embedding

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DefaultDimensions is the vector length of the default embedding model.
const DefaultDimensions = 3072

// bytesPerComponent is the width of one float32.
const bytesPerComponent = 4

// Encode serialises vec into a fixed-width little-endian buffer.
// A nil or empty vector encodes to nil so the column stays NULL.
func Encode(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	buf := make([]byte, len(vec)*bytesPerComponent)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*bytesPerComponent:], math.Float32bits(v))
	}
	return buf
}

// Decode reverses Encode. A nil buffer decodes to a nil vector.
func Decode(data []byte) ([]float32, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if len(data)%bytesPerComponent != 0 {
		return nil, fmt.Errorf("embedding: buffer length %d is not a multiple of %d", len(data), bytesPerComponent)
	}

	vec := make([]float32, len(data)/bytesPerComponent)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*bytesPerComponent:]))
	}
	return vec, nil
}

// DecodeDim decodes data and checks it has exactly dim components.
func DecodeDim(data []byte, dim int) ([]float32, error) {
	vec, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if vec != nil && len(vec) != dim {
		return nil, fmt.Errorf("embedding: got %d components, want %d", len(vec), dim)
	}
	return vec, nil
}
