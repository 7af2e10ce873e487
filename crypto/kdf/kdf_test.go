package kdf

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

var testParams = Params{Time: 1, Memory: 8 * 1024, Threads: 1}

func TestDeriveDeterministic(t *testing.T) {
	ctx := context.Background()
	k1, err := Derive(ctx, "correct horse", nil, testParams)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, k1.Key, qt.HasLen, KeySize)
	qt.Assert(t, k1.Salt, qt.HasLen, SaltSize)
	qt.Assert(t, k1.Params, qt.Equals, testParams)

	k2, err := Derive(ctx, "correct horse", k1.Salt, testParams)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, k2.Key, qt.DeepEquals, k1.Key)

	// a different password or salt yields a different key
	k3, err := Derive(ctx, "correct horsf", k1.Salt, testParams)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, bytes.Equal(k3.Key, k1.Key), qt.IsFalse)

	k4, err := Derive(ctx, "correct horse", nil, testParams)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, bytes.Equal(k4.Salt, k1.Salt), qt.IsFalse)
	qt.Assert(t, bytes.Equal(k4.Key, k1.Key), qt.IsFalse)
}

func TestDeriveErrors(t *testing.T) {
	ctx := context.Background()

	_, err := Derive(ctx, "", nil, testParams)
	qt.Assert(t, errors.Is(err, ErrKeyDerivation), qt.IsTrue)

	_, err = Derive(ctx, "pw", []byte{1, 2, 3}, testParams)
	qt.Assert(t, errors.Is(err, ErrKeyDerivation), qt.IsTrue)

	_, err = Derive(ctx, "pw", nil, Params{})
	qt.Assert(t, errors.Is(err, ErrKeyDerivation), qt.IsTrue)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = Derive(cctx, "pw", nil, testParams)
	qt.Assert(t, errors.Is(err, ErrKeyDerivationTimeout), qt.IsTrue)
	qt.Assert(t, errors.Is(err, ErrKeyDerivation), qt.IsTrue)
}

func TestDefaultParamsValid(t *testing.T) {
	qt.Assert(t, DefaultParams.Validate(), qt.IsNil)
}

func TestWithTimeout(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), 0)
	defer cancel()
	deadline, ok := ctx.Deadline()
	qt.Assert(t, ok, qt.IsTrue)
	qt.Assert(t, time.Until(deadline) > DefaultTimeout-time.Second, qt.IsTrue)

	// the default cost takes far longer than a millisecond
	ctx, cancel = WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	_, err := Derive(ctx, "pw", nil, DefaultParams)
	qt.Assert(t, err, qt.ErrorIs, ErrKeyDerivationTimeout)
}
