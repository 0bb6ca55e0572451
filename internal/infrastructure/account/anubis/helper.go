package anubis

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"

	crerr "github.com/cockroachdb/errors"
)

// countsAsFailure tells the breaker which errors mean Anubis is unhealthy;
// rejected tokens do not.
func countsAsFailure(err error) bool {
	return crerr.Is(err, errTransient)
}

// principalKey keys the principal cache without keeping raw tokens in memory.
func principalKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "principal:" + hex.EncodeToString(sum[:])
}

// introspectionURL resolves path against base. An absolute path wins, which
// lets deployments point introspection at a different host.
func introspectionURL(base, path string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	path = strings.TrimSpace(path)
	if path == "" {
		return base
	}
	if u, err := url.Parse(path); err == nil && u.IsAbs() {
		return path
	}
	joined, err := url.JoinPath(base, path)
	if err != nil {
		return base + "/" + strings.TrimLeft(path, "/")
	}
	return joined
}
