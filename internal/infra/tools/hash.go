package tools

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"
	"sort"
	"strings"
)

var hashAlgs = map[string]func() hash.Hash{
	"md5":    md5.New,
	"sha1":   sha1.New,
	"sha224": sha256.New224,
	"sha256": sha256.New,
	"sha384": sha512.New384,
	"sha512": sha512.New,
}

// Digest hashes the input text. The query is either "alg:text" or just
// the text (sha256 by default).
type Digest struct{}

func NewDigest() *Digest { return &Digest{} }

type digestResult struct {
	Alg     string `json:"alg"`
	TextLen int    `json:"text_len"`
	Hash    string `json:"hash"`
}

// Run implements the provider port.
func (Digest) Run(_ context.Context, query string) (json.RawMessage, error) {
	alg, text := "sha256", query
	if i := strings.Index(query, ":"); i > 0 {
		if _, ok := hashAlgs[strings.ToLower(query[:i])]; ok {
			alg, text = strings.ToLower(query[:i]), query[i+1:]
		}
	}

	newHash, ok := hashAlgs[alg]
	if !ok {
		return nil, fmt.Errorf("unsupported algorithm %q (allowed: %s)", alg, strings.Join(allowedAlgs(), ", "))
	}

	h := newHash()
	h.Write([]byte(text))
	return json.Marshal(digestResult{
		Alg:     alg,
		TextLen: len(text),
		Hash:    hex.EncodeToString(h.Sum(nil)),
	})
}

func allowedAlgs() []string {
	algs := make([]string, 0, len(hashAlgs))
	for k := range hashAlgs {
		algs = append(algs, k)
	}
	sort.Strings(algs)
	return algs
}
