package vote

import (
	"testing"

	"github.com/btcsuite/btcutil/base58"
)

// mustEncode builds a valid base58check memo string wrapping body, for
// tests that need Reduce's internal memo.Decode call to succeed.
func mustEncode(t *testing.T, body string) string {
	t.Helper()
	buf := make([]byte, 0, 2+len(body))
	buf = append(buf, 0x01, byte(len(body)))
	buf = append(buf, []byte(body)...)
	return base58.CheckEncode(buf, 0x14)
}
