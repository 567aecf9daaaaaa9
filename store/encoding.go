package store

import (
	"encoding/binary"
	"fmt"
	"math"
)

// encodeEmbedding stores a vector as little-endian IEEE 754 float32 values.
// The length is derived from the blob size on decode.
func encodeEmbedding(vec []float32) []byte {
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

func decodeEmbedding(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d (not multiple of 4)", len(b))
	}
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}

// similarity scores a against b so that larger is always more similar.
func similarity(distance Distance, a, b []float32) float32 {
	if len(a) != len(b) {
		return float32(math.Inf(-1))
	}
	switch distance {
	case Dot:
		return float32(dot(a, b))
	case Euclidean:
		var sum float64
		for i := range a {
			d := float64(a[i]) - float64(b[i])
			sum += d * d
		}
		return -float32(math.Sqrt(sum))
	default:
		na, nb := math.Sqrt(dot(a, a)), math.Sqrt(dot(b, b))
		if na == 0 || nb == 0 {
			return 0
		}
		return float32(dot(a, b) / (na * nb))
	}
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
