package strategy

import (
	"fmt"
	"math"
	"math/big"
)

// DecimalLengthInBytes returns the minimal two's-complement byte length for a
// decimal of the given precision: ceil((precision*log2(10) + 1) / 8). The +1
// reserves the sign bit. The result must match what the Parquet fixed-length
// decimal representation expects, or downstream readers misdecode.
func DecimalLengthInBytes(precision int) int {
	numBinaryDigits := float64(precision) * math.Log2(10)
	lengthInBits := numBinaryDigits + 1
	return int(math.Ceil(lengthInBits / 8))
}

var bigTen = big.NewInt(10)

// twosComplementEncoder renders decimal text as a fixed-length big-endian
// two's-complement integer. The intermediate big.Int values are reused across
// calls, so a single encoder handles a whole column without per-row
// allocation. It trusts its input: the text is the source's own rendering of
// a declared decimal type, and anything malformed is an internal invariant
// violation, not a data error.
type twosComplementEncoder struct {
	// modulus is 1 << (8 * lengthInBytes)
	modulus *big.Int
	v       *big.Int
	tmp     *big.Int
}

func newTwosComplementEncoder(lengthInBytes int) twosComplementEncoder {
	return twosComplementEncoder{
		modulus: new(big.Int).Lsh(big.NewInt(1), uint(8*lengthInBytes)),
		v:       new(big.Int),
		tmp:     new(big.Int),
	}
}

// Encode strips the radix point from text, treating the digits as an integer
// scaled by scale, and writes the big-endian two's-complement rendering into
// out, sign-extended to exactly len(out) bytes. Renderings with fewer
// fraction digits than scale are scaled up; more fraction digits than the
// declared scale, stray characters, or values exceeding the declared
// precision all panic.
func (e *twosComplementEncoder) Encode(text []byte, scale int, out []byte) {
	neg := false
	i := 0
	if i < len(text) && (text[i] == '+' || text[i] == '-') {
		neg = text[i] == '-'
		i++
	}

	v := e.v.SetInt64(0)
	fracDigits := -1
	seenDigit := false
	for ; i < len(text); i++ {
		c := text[i]
		if c == '.' {
			if fracDigits >= 0 {
				panic(malformedDecimal(text))
			}
			fracDigits = 0
			continue
		}
		if c < '0' || c > '9' {
			panic(malformedDecimal(text))
		}
		v.Mul(v, bigTen)
		v.Add(v, e.tmp.SetInt64(int64(c-'0')))
		if fracDigits >= 0 {
			fracDigits++
		}
		seenDigit = true
	}
	if !seenDigit {
		panic(malformedDecimal(text))
	}
	if fracDigits < 0 {
		fracDigits = 0
	}
	if fracDigits > scale {
		panic(malformedDecimal(text))
	}
	for ; fracDigits < scale; fracDigits++ {
		v.Mul(v, bigTen)
	}
	if neg {
		v.Neg(v)
	}
	e.put(v, out)
}

func (e *twosComplementEncoder) put(v *big.Int, out []byte) {
	u := v
	if v.Sign() < 0 {
		// Negative values map onto [2^(8n-1), 2^(8n)), which renders as
		// exactly n big-endian bytes with the sign bit set.
		u = e.tmp.Add(e.modulus, v)
	}
	b := u.Bytes()
	if len(b) > len(out) {
		panic(fmt.Sprintf("strategy: decimal value needs %d bytes, column is %d bytes wide", len(b), len(out)))
	}
	pad := len(out) - len(b)
	for j := 0; j < pad; j++ {
		out[j] = 0
	}
	copy(out[pad:], b)
}

// DecodeTwosComplement interprets data as a big-endian two's-complement
// integer of len(data) bytes.
func DecodeTwosComplement(data []byte) *big.Int {
	v := new(big.Int).SetBytes(data)
	if len(data) > 0 && data[0]&0x80 != 0 {
		m := new(big.Int).Lsh(big.NewInt(1), uint(8*len(data)))
		v.Sub(v, m)
	}
	return v
}

// parseRadix10Signed parses a signed base-10 integer prefix of text, stopping
// at the first non-digit.
func parseRadix10Signed(text []byte) int64 {
	var v int64
	neg := false
	i := 0
	if i < len(text) && (text[i] == '+' || text[i] == '-') {
		neg = text[i] == '-'
		i++
	}
	for ; i < len(text); i++ {
		c := text[i]
		if c < '0' || c > '9' {
			break
		}
		v = v*10 + int64(c-'0')
	}
	if neg {
		return -v
	}
	return v
}

func malformedDecimal(text []byte) string {
	return fmt.Sprintf("strategy: malformed decimal text %q from a trusted source rendering", text)
}

func truncatedDecimal(text []byte) string {
	return fmt.Sprintf("strategy: decimal rendering truncated to %q, staging buffer undersized", text)
}
