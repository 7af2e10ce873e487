// Package compressor compresses stored objects with zstd.
package compressor

import (
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"
	"go.anonvote.io/avote/log"
)

// Compressor is a data compressor that uses zstd. It is safe for concurrent
// use.
type Compressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewCompressor creates a new data compressor.
func NewCompressor() Compressor {
	var c Compressor
	var err error
	c.encoder, err = zstd.NewWriter(nil)
	if err != nil {
		panic(err) // we don't use options, this shouldn't happen
	}
	c.decoder, err = zstd.NewReader(nil)
	if err != nil {
		panic(err) // we don't use options, this shouldn't happen
	}
	return c
}

// CompressBytes compresses the input via zstd.
func (c Compressor) CompressBytes(src []byte) []byte {
	// Ballots are small JSON objects full of hex, which compress to
	// roughly half their size.
	estimate := len(src) / 2
	start := time.Now()
	dst := c.encoder.EncodeAll(src, make([]byte, 0, estimate))
	log.Debugw("compressed object",
		"from", len(src),
		"to", len(dst),
		"elapsed", time.Since(start).String())
	return dst
}

// isZstd reports whether the input bytes begin with zstd's magic number,
// 0xFD2FB528 in little-endian format.
func isZstd(src []byte) bool {
	return len(src) >= 4 &&
		src[0] == 0x28 && src[1] == 0xB5 &&
		src[2] == 0x2f && src[3] == 0xFD
}

// DecompressBytes decompresses zstd input. Input without the zstd magic
// number is assumed to be uncompressed and returned as-is.
func (c Compressor) DecompressBytes(src []byte) ([]byte, error) {
	if !isZstd(src) {
		return src, nil
	}
	estimate := len(src) * 2
	dst, err := c.decoder.DecodeAll(src, make([]byte, 0, estimate))
	if err != nil {
		return nil, fmt.Errorf("could not decompress zstd: %w", err)
	}
	return dst, nil
}
