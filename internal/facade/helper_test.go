package facade

import (
	"github.com/btcsuite/btcutil/base58"
	"github.com/shopspring/decimal"
)

// encodeMemo builds a valid base58check memo string wrapping body, for
// tests that need a Facade call's internal memo.Decode to succeed.
func encodeMemo(body string) string {
	buf := make([]byte, 0, 2+len(body))
	buf = append(buf, 0x01, byte(len(body)))
	buf = append(buf, []byte(body)...)
	return base58.CheckEncode(buf, 0x14)
}

func decimalFromString(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
