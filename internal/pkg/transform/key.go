package transform

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

const transformedPrefix = "transformed"

// DeriveKey turns a source file name and a set of transformation options into
// the deterministic object key the transformed artifact lives under:
//
//	transformed/{baseName}_{optionsHash}.{format}
//
// The hash covers the canonical JSON encoding of the defined option entries
// sorted by name, so key derivation is independent of how the options were
// supplied and distinct for any differing option set. The key encodes every
// parameter, which makes the blob store itself the cache: a HeadObject on the
// derived key is the entire cache lookup.
func DeriveKey(fileName string, opts Options) string {
	pairs := make([][2]interface{}, 0, 9)
	for _, e := range opts.entries() {
		pairs = append(pairs, [2]interface{}{e.name, e.value})
	}
	// Marshaling fixed scalar pairs cannot fail.
	canonical, _ := json.Marshal(pairs)

	sum := md5.Sum(canonical)
	optionsHash := hex.EncodeToString(sum[:])[:10]

	ext := filepath.Ext(fileName)
	base := strings.TrimSuffix(filepath.Base(fileName), ext)

	format := ""
	if opts.Format != nil {
		format = *opts.Format
	} else if ext != "" {
		format = strings.TrimPrefix(strings.ToLower(ext), ".")
	}
	if format == "" {
		format = "jpg"
	}

	return fmt.Sprintf("%s/%s_%s.%s", transformedPrefix, base, optionsHash, format)
}
