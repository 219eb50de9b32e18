package server

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// readPCM decodes a stream of little-endian float32 samples.
func readPCM(r io.Reader) ([]float32, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(raw)%4 != 0 {
		return nil, errors.New("body length is not a multiple of 4 bytes")
	}

	samples := make([]float32, len(raw)/4)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(raw[i*4:])
		samples[i] = math.Float32frombits(bits)
	}
	return samples, nil
}
