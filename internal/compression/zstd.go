// Package compression provides the zstd codec used for remote transfer.
// History stored on disk is never compressed.
package compression

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Level selects an encoder speed/ratio tradeoff, 1 (fastest) to 3 (best).
type Level int

const (
	LevelFastest Level = 1
	LevelDefault Level = 2
	LevelBetter  Level = 3
)

type Codec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func NewCodec(level Level) (*Codec, error) {
	var encoderLevel zstd.EncoderLevel
	switch level {
	case LevelFastest:
		encoderLevel = zstd.SpeedFastest
	case LevelBetter:
		encoderLevel = zstd.SpeedBetterCompression
	default:
		encoderLevel = zstd.SpeedDefault
	}

	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(encoderLevel),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, err
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, err
	}

	return &Codec{encoder: encoder, decoder: decoder}, nil
}

func (c *Codec) Compress(data []byte) []byte {
	return c.encoder.EncodeAll(data, make([]byte, 0, len(data)))
}

func (c *Codec) Decompress(data []byte) ([]byte, error) {
	out, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	return out, nil
}

func (c *Codec) Close() error {
	c.encoder.Close()
	c.decoder.Close()
	return nil
}
