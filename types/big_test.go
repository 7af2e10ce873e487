package types

import (
	"encoding/json"
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestBigInt(t *testing.T) {
	a := new(BigInt).SetUint64(300)
	qt.Assert(t, a.String(), qt.Equals, "300")

	j, err := a.MarshalText()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, string(j), qt.Equals, "300")

	c := new(BigInt)
	err = c.UnmarshalText([]byte("123"))
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, c.String(), qt.Equals, "123")
	qt.Assert(t, c.UnmarshalText([]byte("0x12")), qt.IsNotNil)

	// values wider than 64 bits survive a JSON round trip
	wide, ok := new(big.Int).SetString("340282366920938463463374607431768211455", 10)
	qt.Assert(t, ok, qt.IsTrue)
	js := &jsonStructTest{Name: "first", BigInt: NewBigInt(wide)}
	data, err := json.Marshal(js)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, string(data), qt.Equals,
		`{"name":"first","number":"340282366920938463463374607431768211455"}`)

	var back jsonStructTest
	qt.Assert(t, json.Unmarshal(data, &back), qt.IsNil)
	qt.Assert(t, back.BigInt.Equal(js.BigInt), qt.IsTrue)

	d := new(big.Int).SetInt64(456).Bytes()
	c.SetBytes(d)
	qt.Assert(t, c.String(), qt.Equals, "456")
}

type jsonStructTest struct {
	Name   string  `json:"name"`
	BigInt *BigInt `json:"number"`
}
