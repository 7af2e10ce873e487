package crypto

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

type unsortedStruct struct {
	Zeta  string `json:"zeta"`
	Alpha int64  `json:"alpha"`
	Mid   struct {
		B string `json:"b"`
		A string `json:"a"`
	} `json:"mid"`
}

func TestSortedMarshalJSON(t *testing.T) {
	var v unsortedStruct
	v.Zeta = "z"
	v.Alpha = 9007199254740993 // above 2^53, must not lose precision
	v.Mid.B = "b"
	v.Mid.A = "a"

	got, err := SortedMarshalJSON(v)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, string(got), qt.Equals, `{"alpha":9007199254740993,"mid":{"a":"a","b":"b"},"zeta":"z"}`)

	// same content in a map produces identical bytes
	again, err := SortedMarshalJSON(map[string]any{
		"zeta":  "z",
		"mid":   map[string]string{"b": "b", "a": "a"},
		"alpha": int64(9007199254740993),
	})
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, string(again), qt.Equals, string(got))
}
