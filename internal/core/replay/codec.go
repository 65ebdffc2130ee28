// Package replay stores races compactly and proves they replay bit for bit.
// Frames are encoded with msgpack and fingerprinted with xxhash; a Replay
// holds the race inputs plus one digest per step.
package replay

import (
	"bytes"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/zeusync/swimrace/internal/core/race"
)

// Encode serializes a frame. Equal frames always encode to equal bytes.
func Encode(f race.Frame) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(&f); err != nil {
		return nil, fmt.Errorf("encode frame t=%.4f: %w", f.T, err)
	}
	return buf.Bytes(), nil
}

func Decode(data []byte) (race.Frame, error) {
	var f race.Frame
	if err := msgpack.Unmarshal(data, &f); err != nil {
		return race.Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	return f, nil
}

// Digest is the xxhash of the frame's encoding.
func Digest(f race.Frame) (uint64, error) {
	data, err := Encode(f)
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(data), nil
}
