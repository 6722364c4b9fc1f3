package db

import (
	"encoding/binary"
	"math"
)

// EncodeVector encodes an embedding as the little-endian FLOAT32 blob
// stored in hash vector fields and passed as KNN query parameters.
func EncodeVector(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
