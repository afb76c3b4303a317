package operator

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/cyber-boost/helix/pkg/value"
)

// cryptoOperator implements `@crypto.hash(alg, data)` over {sha256, sha1, md5}.
func cryptoOperator(member string, positional []value.Value, named map[string]value.Value, ctx *Context) (value.Value, error) {
	switch member {
	case "hash", "":
		if len(positional) < 2 {
			return value.Null, newEvalError("E_CRYPTO_ARGS", "@crypto.hash requires an algorithm and data")
		}
		alg := strings.ToLower(positional[0].ToDisplayString())
		data := []byte(positional[1].ToDisplayString())

		var sum []byte
		switch alg {
		case "sha256":
			h := sha256.Sum256(data)
			sum = h[:]
		case "sha1":
			h := sha1.Sum(data)
			sum = h[:]
		case "md5":
			h := md5.Sum(data)
			sum = h[:]
		default:
			return value.Null, newEvalError("E_CRYPTO_ALG", "unsupported hash algorithm %q", alg)
		}
		return value.String(hex.EncodeToString(sum)), nil
	default:
		return value.Null, newEvalError("E_CRYPTO_UNKNOWN_MEMBER", "@crypto has no member %q", member)
	}
}
