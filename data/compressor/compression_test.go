package compressor

import (
	"bytes"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestCompressor(t *testing.T) {
	c := qt.New(t)
	comp := NewCompressor()

	src := bytes.Repeat([]byte(`{"ciphertext":"00ff00ff","iv":"0102"}`), 100)
	compressed := comp.CompressBytes(src)
	c.Assert(isZstd(compressed), qt.IsTrue)
	c.Assert(len(compressed) < len(src), qt.IsTrue)

	got, err := comp.DecompressBytes(compressed)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, src)

	// uncompressed input passes through
	got, err = comp.DecompressBytes([]byte("plain"))
	c.Assert(err, qt.IsNil)
	c.Assert(string(got), qt.Equals, "plain")

	// corrupt zstd frame
	broken := append([]byte{}, compressed[:8]...)
	_, err = comp.DecompressBytes(broken)
	c.Assert(err, qt.IsNotNil)
}
