package vm

import (
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode"
)

const (
	two32 = 4294967296.0
	two64 = 18446744073709551616.0
)

// DoubleToInt32 implements the ToInt32 abstract operation on a double:
// truncate toward zero, then wrap modulo 2^32.
func DoubleToInt32(f float64) int32 {
	if f != f || math.IsInf(f, 0) {
		return 0
	}
	if f >= math.MinInt32 && f <= math.MaxInt32 {
		return int32(f)
	}
	m := math.Mod(math.Trunc(f), two32)
	if m < 0 {
		m += two32
	}
	return int32(uint32(m))
}

// DoubleToInt64 is the 64-bit analogue of DoubleToInt32 (modulo 2^64).
func DoubleToInt64(f float64) int64 {
	if f != f || math.IsInf(f, 0) {
		return 0
	}
	if f >= -9223372036854775808.0 && f < 9223372036854775808.0 {
		return int64(f)
	}
	m := math.Mod(math.Trunc(f), two64)
	if m < 0 {
		m += two64
	}
	if m >= 9223372036854775808.0 {
		return int64(uint64(m - 9223372036854775808.0) | signBit)
	}
	return int64(m)
}

// cleanExponentialFormat strips leading zeros from the exponent:
// "1e-07" -> "1e-7", "1e+025" -> "1e+25".
func cleanExponentialFormat(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] != 'e' && s[i] != 'E' {
			continue
		}
		if i+1 < len(s) && (s[i+1] == '+' || s[i+1] == '-') {
			j := i + 2
			for j < len(s) && s[j] == '0' {
				j++
			}
			if j >= len(s) {
				return s[:i+2] + "0"
			}
			return s[:i+2] + s[j:]
		}
		break
	}
	return s
}

// NumberToString implements Number::toString for radix 10.
func NumberToString(f float64) string {
	switch {
	case f != f:
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs < 1e-6 || abs >= 1e21 {
		return cleanExponentialFormat(strconv.FormatFloat(f, 'e', -1, 64))
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

const radixDigits = "0123456789abcdefghijklmnopqrstuvwxyz"

// NumberToStringRadix renders f in the given radix (2..36) the way
// Number.prototype.toString(radix) does. Fractions are emitted until the
// value is exhausted or 52 digits have been produced.
func NumberToStringRadix(f float64, radix int) string {
	if radix == 10 || f != f || math.IsInf(f, 0) || f == 0 {
		return NumberToString(f)
	}
	neg := f < 0
	if neg {
		f = -f
	}
	ip, fp := math.Modf(f)

	var sb strings.Builder
	if neg {
		sb.WriteByte('-')
	}
	if ip < 9007199254740992 {
		sb.WriteString(strconv.FormatUint(uint64(ip), radix))
	} else {
		bi, _ := new(big.Float).SetFloat64(ip).Int(nil)
		sb.WriteString(bi.Text(radix))
	}
	if fp > 0 {
		sb.WriteByte('.')
		for i := 0; i < 52 && fp > 0; i++ {
			fp *= float64(radix)
			d, rest := math.Modf(fp)
			sb.WriteByte(radixDigits[int(d)])
			fp = rest
		}
	}
	return sb.String()
}

// isJSWhitespace reports whether r is WhiteSpace or LineTerminator.
// U+0085 is not ECMAScript whitespace; U+FEFF is.
func isJSWhitespace(r rune) bool {
	if r == 0xFEFF {
		return true
	}
	if r == 0x85 {
		return false
	}
	return unicode.IsSpace(r)
}

// StringToNumber implements the StringToNumber abstract operation.
func StringToNumber(s string) float64 {
	str := strings.TrimFunc(s, isJSWhitespace)
	if str == "" {
		return 0
	}

	if len(str) > 2 && str[0] == '0' {
		base := 0
		switch str[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			return parseRadixInteger(str[2:], base)
		}
	}

	switch str {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}

	if !isDecimalLiteral(str) {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(str, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return f // ±Inf or ±0 already set by ParseFloat
		}
		return math.NaN()
	}
	return f
}

// parseRadixInteger parses an unsigned integer literal without prefix,
// rounding to the nearest double for values beyond 2^53.
func parseRadixInteger(digits string, base int) float64 {
	for i := 0; i < len(digits); i++ {
		c := digits[i]
		var d int
		switch {
		case c >= '0' && c <= '9':
			d = int(c - '0')
		case c >= 'a' && c <= 'z':
			d = int(c-'a') + 10
		case c >= 'A' && c <= 'Z':
			d = int(c-'A') + 10
		default:
			return math.NaN()
		}
		if d >= base {
			return math.NaN()
		}
	}
	if u, err := strconv.ParseUint(digits, base, 64); err == nil {
		return float64(u)
	}
	bi, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return math.NaN()
	}
	f, _ := new(big.Float).SetInt(bi).Float64()
	return f
}

// isDecimalLiteral checks the StrDecimalLiteral grammar (without Infinity):
// [+-] (digits [. digits] | . digits) [(e|E) [+-] digits].
func isDecimalLiteral(s string) bool {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	intDigits := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
		intDigits++
	}
	fracDigits := 0
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
			fracDigits++
		}
	}
	if intDigits == 0 && fracDigits == 0 {
		return false
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		expDigits := 0
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
			expDigits++
		}
		if expDigits == 0 {
			return false
		}
	}
	return i == len(s)
}
