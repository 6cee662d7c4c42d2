// Package vector provides the similarity math and on-disk encoding shared
// by the storage drivers.
package vector

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// CosineSimilarity computes the cosine similarity between two vectors of
// equal dimension. Degenerate input (zero-norm vector, dimension
// mismatch, empty vector) yields 0 rather than an error so a similarity
// scan can skip the candidate and keep going.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// EncodeBlob serializes a vector as little-endian float32 values for
// storage in a BLOB column.
func EncodeBlob(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeBlob deserializes a vector previously written by EncodeBlob.
func DecodeBlob(buf []byte) ([]float32, error) {
	if len(buf) == 0 {
		return nil, nil
	}
	if len(buf)%4 != 0 {
		return nil, errors.Errorf("malformed embedding blob: %d bytes is not a multiple of 4", len(buf))
	}
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v, nil
}
