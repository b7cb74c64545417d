package transport

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"net/http"
	"slices"

	"github.com/samber/lo"
)

// Identity is the dedup key of an outbound request.
//
// Two requests share an Identity exactly when they have the same method, the
// same URL, the same header keys with the same values, and byte-equal
// bodies. Header key order does not matter; the order of values under one key
// does.
type Identity string

// String returns a short form suitable for logs.
func (id Identity) String() string {
	if len(id) > 16 {
		return string(id[:16])
	}
	return string(id)
}

// IdentityOf computes the Identity of req.
//
// The body is read in full to hash it. The returned request is a shallow copy
// of req carrying a fresh, unread body; req itself is not modified and its
// body must not be used again.
func IdentityOf(req *http.Request) (Identity, *http.Request, error) {
	body, err := readBody(req)
	if err != nil {
		return "", nil, fmt.Errorf("transport: failed to read request body: %w", err)
	}

	h := sha256.New()
	writeField(h, []byte(req.Method))
	writeField(h, []byte(req.URL.String()))

	keys := lo.Keys(req.Header)
	slices.Sort(keys)
	writeLen(h, len(keys))
	for _, k := range keys {
		values := req.Header[k]
		writeField(h, []byte(k))
		writeLen(h, len(values))
		for _, v := range values {
			writeField(h, []byte(v))
		}
	}
	writeField(h, body)

	out := req.Clone(req.Context())
	if body != nil {
		out.Body = io.NopCloser(bytes.NewReader(body))
		out.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
		out.ContentLength = int64(len(body))
	}

	return Identity(hex.EncodeToString(h.Sum(nil))), out, nil
}

func readBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	defer req.Body.Close()
	return io.ReadAll(req.Body)
}

// writeField writes a length-prefixed field, so no two distinct requests can
// produce the same byte stream.
func writeField(h hash.Hash, b []byte) {
	writeLen(h, len(b))
	_, _ = h.Write(b)
}

func writeLen(h hash.Hash, n int) {
	var buf [binary.MaxVarintLen64]byte
	_, _ = h.Write(buf[:binary.PutUvarint(buf[:], uint64(n))])
}
