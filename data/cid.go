package data

import (
	"fmt"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multicodec"
	"github.com/multiformats/go-multihash"
	"go.anonvote.io/avote/types"
)

// CalculateCIDv1json calculates the CID (v1) of a bytes buffer, using Codec
// DagJSON and hash SHA2-256 over the raw bytes.
func CalculateCIDv1json(data []byte) (cid.Cid, error) {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(uint64(multicodec.DagJson), mh), nil
}

// URI returns the storage URI of a CID.
func URI(c cid.Cid) string {
	return types.ContentURIPrefix + c.String()
}

// ParseURI extracts the CID from a storage URI. Bare CIDs and /ipfs/ paths are
// also accepted.
func ParseURI(uri string) (cid.Cid, error) {
	s := strings.TrimPrefix(strings.TrimPrefix(uri, types.ContentURIPrefix), "/ipfs/")
	c, err := cid.Decode(s)
	if err != nil {
		return cid.Undef, fmt.Errorf("invalid content URI %q: %w", uri, err)
	}
	return c, nil
}

// VerifyCID checks that data hashes to c.
func VerifyCID(c cid.Cid, data []byte) error {
	got, err := c.Prefix().Sum(data)
	if err != nil {
		return err
	}
	if !got.Equals(c) {
		return fmt.Errorf("content does not match %s", c)
	}
	return nil
}

// CIDequals compares two CIDs (v0 or v1) in URI, path or bare form and
// returns true if they address the same content. Only the multihash is
// compared, not the codec.
func CIDequals(uri1, uri2 string) bool {
	c1, err := ParseURI(uri1)
	if err != nil {
		return false
	}
	c2, err := ParseURI(uri2)
	if err != nil {
		return false
	}
	return c1.Hash().String() == c2.Hash().String()
}
