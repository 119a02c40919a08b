package vdf

import (
	"math/big"
)

// Int is the module's arbitrary-precision nonnegative integer type. It wraps
// math/big.Int -- the only arbitrary-precision primitive available anywhere
// in the ecosystem at 2048-4096 bit widths -- behind the narrow surface the
// VDF engine actually needs: add, subtract, multiply, mod, shifts,
// bitwise-and, comparisons, and byte/hex/decimal conversions.
//
// Int values are not safe for concurrent mutation, matching math/big's own
// contract. The VDF engine never mutates an Int after constructing it; every
// operation below returns a fresh Int.
type Int struct {
	v *big.Int
}

// NewInt wraps an int64 as an Int. It is used internally for small
// nonnegative literals such as 0, 1, 2. No constructor rejects negative
// values: a negative x gives a negative Int, as does a leading minus sign in
// IntFromDecimal or IntFromHex.
func NewInt(x int64) *Int {
	return &Int{v: big.NewInt(x)}
}

// IntFromBytes interprets b as a big-endian unsigned integer.
func IntFromBytes(b []byte) *Int {
	return &Int{v: new(big.Int).SetBytes(b)}
}

// IntFromHex parses a hexadecimal string (optionally "0x"-prefixed) into an
// Int. Returns a *RangeError if s is not valid hex.
func IntFromHex(s string) (*Int, error) {
	s = trimHexPrefix(s)
	if s == "" {
		return NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return nil, &RangeError{Field: "hex", Msg: "invalid hexadecimal integer literal: " + s}
	}
	return &Int{v: v}, nil
}

// IntFromDecimal parses a base-10 string into an Int. Returns a *RangeError
// if s is not a valid decimal integer literal.
func IntFromDecimal(s string) (*Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, &RangeError{Field: "decimal", Msg: "invalid decimal integer literal: " + s}
	}
	return &Int{v: v}, nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// Zero and One are convenience constants. Callers must not mutate the
// returned value's underlying big.Int; Clone it first if a mutable copy is
// needed.
func Zero() *Int { return NewInt(0) }
func One() *Int  { return NewInt(1) }
func Two() *Int  { return NewInt(2) }

// Clone returns an independent copy of x.
func (x *Int) Clone() *Int {
	return &Int{v: new(big.Int).Set(x.v)}
}

// Add returns x + y.
func (x *Int) Add(y *Int) *Int {
	return &Int{v: new(big.Int).Add(x.v, y.v)}
}

// Sub returns x - y. The result is only meaningful (nonnegative) when x >= y;
// the VDF engine never subtracts in a direction that underflows.
func (x *Int) Sub(y *Int) *Int {
	return &Int{v: new(big.Int).Sub(x.v, y.v)}
}

// Mul returns x * y.
func (x *Int) Mul(y *Int) *Int {
	return &Int{v: new(big.Int).Mul(x.v, y.v)}
}

// Mod returns x mod m, in [0, m).
func (x *Int) Mod(m *Int) *Int {
	return &Int{v: new(big.Int).Mod(x.v, m.v)}
}

// DivMod returns (x div m, x mod m).
func (x *Int) DivMod(m *Int) (*Int, *Int) {
	q, r := new(big.Int).DivMod(x.v, m.v, new(big.Int))
	return &Int{v: q}, &Int{v: r}
}

// Lsh returns x << n.
func (x *Int) Lsh(n uint) *Int {
	return &Int{v: new(big.Int).Lsh(x.v, n)}
}

// Rsh returns x >> n.
func (x *Int) Rsh(n uint) *Int {
	return &Int{v: new(big.Int).Rsh(x.v, n)}
}

// And returns x & y.
func (x *Int) And(y *Int) *Int {
	return &Int{v: new(big.Int).And(x.v, y.v)}
}

// Cmp returns -1, 0, or +1 as x is less than, equal to, or greater than y.
func (x *Int) Cmp(y *Int) int {
	return x.v.Cmp(y.v)
}

// Equal reports whether x and y represent the same integer.
func (x *Int) Equal(y *Int) bool {
	return x.v.Cmp(y.v) == 0
}

// Sign returns -1, 0, or +1 as x is negative, zero, or positive.
func (x *Int) Sign() int {
	return x.v.Sign()
}

// IsOdd reports whether x is odd.
func (x *Int) IsOdd() bool {
	return x.v.Bit(0) == 1
}

// BitLen returns the minimal number of bits to represent x (0 for x == 0).
func (x *Int) BitLen() int {
	return x.v.BitLen()
}

// Bit returns the value of the i'th bit of x (0 is the least significant).
func (x *Int) Bit(i int) uint {
	return x.v.Bit(i)
}

// GCD returns the greatest common divisor of x and y (both must be
// nonnegative).
func (x *Int) GCD(y *Int) *Int {
	return &Int{v: new(big.Int).GCD(nil, nil, x.v, y.v)}
}

// Bytes returns the minimal big-endian byte encoding of x, per the module's
// internal bigint byte encoding (empty value -> one zero byte; otherwise the
// shortest big-endian representation, with no leading zero byte).
func (x *Int) Bytes() []byte {
	if x.v.Sign() == 0 {
		return []byte{0}
	}
	return x.v.Bytes()
}

// FillBytes returns the big-endian encoding of x, zero-padded on the left to
// exactly n bytes. Returns a *RangeError if x does not fit in n bytes.
func (x *Int) FillBytes(n int) ([]byte, error) {
	need := (x.v.BitLen() + 7) / 8
	if need > n {
		return nil, &RangeError{Field: "FillBytes", Msg: "value does not fit in the requested byte length"}
	}
	buf := make([]byte, n)
	x.v.FillBytes(buf)
	return buf, nil
}

// Hex returns the lowercase hexadecimal encoding of x, without a "0x" prefix.
func (x *Int) Hex() string {
	return x.v.Text(16)
}

// String returns the base-10 encoding of x.
func (x *Int) String() string {
	return x.v.String()
}

// Big returns the underlying *big.Int. Callers must treat the result as
// read-only; mutating it violates Int's value semantics.
func (x *Int) Big() *big.Int {
	return x.v
}
