package store

import (
	"encoding/binary"
	"fmt"
	"math"
)

// serializeVector packs float32s little-endian, grounded verbatim on the
// teacher's internal/storage/encoding.go SerializeEmbedding (spec.md
// §4.4's byte discipline matches the teacher's existing choice).
func serializeVector(v []float32) []byte {
	b := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return b
}

// deserializeVector reverses serializeVector.
func deserializeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("store: embedding blob length %d not divisible by 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
