package pipeline

import (
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// NativeDecimals is the fixed exponent of the native asset
const NativeDecimals = 18

const (
	dateKeyLayout = "2006-01-02"
	dateLayout    = "January 2, 2006"
	hourLayout    = "3:04 pm"
)

// ShortenAddress abbreviates a 42-character account address to 0x1234...567890.
// Any other input is returned unchanged.
func ShortenAddress(addr string) string {
	if len(addr) != 42 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-6:]
}

// FormatUnits renders a smallest-unit integer as a decimal string with the given exponent.
func FormatUnits(v *big.Int, decimals int) string {
	if v == nil {
		return ""
	}
	return decimal.NewFromBigInt(v, -int32(decimals)).String()
}

// FormatEther converts a wei integer string to ether. ok is false when wei is not an integer.
func FormatEther(wei string) (string, bool) {
	v, ok := new(big.Int).SetString(wei, 10)
	if !ok {
		return "", false
	}
	return FormatUnits(v, NativeDecimals), true
}

// ParseUnits converts a decimal amount into smallest units, truncating extra digits.
func ParseUnits(amount decimal.Decimal, decimals int) *big.Int {
	return amount.Shift(int32(decimals)).Truncate(0).BigInt()
}

// FormatUSD renders an amount as en-US currency with two decimals, e.g. $3,000.00.
// Digits come from the decimal itself so large amounts stay exact.
func FormatUSD(d decimal.Decimal) string {
	rounded := d.Round(2)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Neg()
	}
	fixed := rounded.StringFixed(2)
	dot := strings.IndexByte(fixed, '.')
	return sign + "$" + groupThousands(fixed[:dot]) + fixed[dot:]
}

// groupThousands inserts en-US separators into a run of digits
func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// FormatPercent renders a share with two decimals, e.g. 75.00%.
func FormatPercent(d decimal.Decimal) string {
	return d.StringFixed(2) + "%"
}

// DateKey is the UTC calendar date of a unix timestamp, YYYY-MM-DD.
func DateKey(unix int64) string {
	return time.Unix(unix, 0).UTC().Format(dateKeyLayout)
}

// FormatDate renders the UTC date of a unix timestamp as "January 2, 2006".
func FormatDate(unix int64) string {
	return time.Unix(unix, 0).UTC().Format(dateLayout)
}

// FormatHour renders the UTC time of a unix timestamp as "3:04 pm".
func FormatHour(unix int64) string {
	return time.Unix(unix, 0).UTC().Format(hourLayout)
}
