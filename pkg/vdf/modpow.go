package vdf

// ModPow returns x^y mod p. For small exponents (<= 64 bits) it uses plain
// left-to-right binary square-and-multiply; larger exponents use a
// sliding-window exponentiation, routed through Montgomery form once the
// modulus and exponent are large enough to amortize the conversion cost
// (see shouldUseMontgomeryForExp).
func ModPow(x, y, p *Int) (*Int, error) {
	if p.Sign() <= 0 {
		return nil, rangeErrf("p", "modulus must be positive")
	}
	if y.Sign() < 0 {
		return nil, rangeErrf("y", "exponent must be nonnegative")
	}

	switch {
	case p.Cmp(One()) == 0:
		return Zero(), nil
	case y.Sign() == 0:
		return One().Mod(p), nil
	case y.Cmp(One()) == 0:
		return x.Mod(p), nil
	case y.Cmp(Two()) == 0:
		return x.Mul(x).Mod(p), nil
	}

	if y.BitLen() <= 64 {
		return modPowPlain(x, y, p), nil
	}

	useMontgomery := shouldUseMontgomeryForExp(p, y.BitLen())
	if useMontgomery {
		return modPowWindowedMontgomery(x, y, p)
	}
	return modPowWindowedPlain(x, y, p), nil
}

// modPowPlain implements binary square-and-multiply, scanning the exponent
// from its most significant bit down.
func modPowPlain(x, y, p *Int) *Int {
	result := One().Mod(p)
	base := x.Mod(p)
	for i := y.BitLen() - 1; i >= 0; i-- {
		result = result.Mul(result).Mod(p)
		if y.Bit(i) == 1 {
			result = result.Mul(base).Mod(p)
		}
	}
	return result
}

// windowSize returns the sliding-window width for an exponent of the given
// bit length, per the module's fixed size table.
func windowSize(expBits int) int {
	switch {
	case expBits <= 32:
		return 1
	case expBits <= 96:
		return 3
	case expBits <= 384:
		return 4
	case expBits <= 1024:
		return 5
	default:
		return 6
	}
}

// oddPowersTablePlain builds a dense table of size 2^w holding base^k mod p
// for each odd k in [1, 2^w); even and zero slots are left nil and never
// read.
func oddPowersTablePlain(base, p *Int, w int) []*Int {
	size := 1 << uint(w)
	table := make([]*Int, size)
	table[1] = base
	if size <= 2 {
		return table
	}
	sq := base.Mul(base).Mod(p)
	for k := 3; k < size; k += 2 {
		table[k] = table[k-2].Mul(sq).Mod(p)
	}
	return table
}

// windowAt finds the sliding window ending at bit index hi: it extends down
// to w-1 additional bits but trims trailing zero bits so the window always
// ends on a 1 bit (avoiding wasted table entries for even values). Returns
// the window's low bit index and its integer value.
func windowAt(y *Int, hi, w int) (lo int, val int) {
	lo = hi - w + 1
	if lo < 0 {
		lo = 0
	}
	for y.Bit(lo) == 0 {
		lo++
	}
	for i := hi; i >= lo; i-- {
		val <<= 1
		if y.Bit(i) == 1 {
			val |= 1
		}
	}
	return lo, val
}

// modPowWindowedPlain implements sliding-window exponentiation entirely in
// plain (non-Montgomery) modular arithmetic.
func modPowWindowedPlain(x, y, p *Int) *Int {
	w := windowSize(y.BitLen())
	base := x.Mod(p)
	table := oddPowersTablePlain(base, p, w)

	result := One().Mod(p)
	i := y.BitLen() - 1
	for i >= 0 {
		if y.Bit(i) == 0 {
			result = result.Mul(result).Mod(p)
			i--
			continue
		}
		lo, val := windowAt(y, i, w)
		for k := 0; k < i-lo+1; k++ {
			result = result.Mul(result).Mod(p)
		}
		result = result.Mul(table[val]).Mod(p)
		i = lo - 1
	}
	return result
}

// oddPowersTableMontgomery is oddPowersTablePlain's Montgomery-form
// counterpart: base is already in Montgomery form, and all table entries
// remain in Montgomery form.
func oddPowersTableMontgomery(red *MontgomeryReducer, baseM *Int, w int) []*Int {
	size := 1 << uint(w)
	table := make([]*Int, size)
	table[1] = baseM
	if size <= 2 {
		return table
	}
	sq := red.Square(baseM)
	for k := 3; k < size; k += 2 {
		table[k] = red.Multiply(table[k-2], sq)
	}
	return table
}

// modPowWindowedMontgomery implements sliding-window exponentiation with the
// accumulator and table kept in Montgomery form throughout, converting in
// at the start and out at the end.
func modPowWindowedMontgomery(x, y, p *Int) (*Int, error) {
	red, err := getMontgomeryReducer(p)
	if err != nil {
		return nil, err
	}
	w := windowSize(y.BitLen())
	baseM := red.ToMontgomery(x.Mod(p))
	table := oddPowersTableMontgomery(red, baseM, w)

	result := red.ToMontgomery(One())
	i := y.BitLen() - 1
	for i >= 0 {
		if y.Bit(i) == 0 {
			result = red.Square(result)
			i--
			continue
		}
		lo, val := windowAt(y, i, w)
		for k := 0; k < i-lo+1; k++ {
			result = red.Square(result)
		}
		result = red.Multiply(result, table[val])
		i = lo - 1
	}
	return red.FromMontgomery(result), nil
}

// ModPowProduct returns a^e * b^f mod m, computed via the interleaved Shamir
// trick: the accumulator is squared once per bit position (from the most
// significant bit of max(e,f) down), then multiplied by a, b, or a*b
// depending on which of the two exponents has a set bit at that position.
// This is roughly twice as fast as two independent ModPow calls since the
// squarings are shared. Montgomery routing follows the same policy as
// ModPow, keyed on max(e.BitLen(), f.BitLen()).
func ModPowProduct(a, e, b, f, m *Int) (*Int, error) {
	if m.Sign() <= 0 {
		return nil, rangeErrf("m", "modulus must be positive")
	}
	if e.Sign() < 0 || f.Sign() < 0 {
		return nil, rangeErrf("e,f", "exponents must be nonnegative")
	}
	if m.Cmp(One()) == 0 {
		return Zero(), nil
	}

	n := e.BitLen()
	if f.BitLen() > n {
		n = f.BitLen()
	}

	if shouldUseMontgomeryForExp(m, n) {
		red, err := getMontgomeryReducer(m)
		if err != nil {
			return nil, err
		}
		aM := red.ToMontgomery(a.Mod(m))
		bM := red.ToMontgomery(b.Mod(m))
		abM := red.Multiply(aM, bM)
		result := red.ToMontgomery(One())
		for i := n - 1; i >= 0; i-- {
			result = red.Square(result)
			switch {
			case e.Bit(i) == 1 && f.Bit(i) == 1:
				result = red.Multiply(result, abM)
			case e.Bit(i) == 1:
				result = red.Multiply(result, aM)
			case f.Bit(i) == 1:
				result = red.Multiply(result, bM)
			}
		}
		return red.FromMontgomery(result), nil
	}

	aR := a.Mod(m)
	bR := b.Mod(m)
	abR := aR.Mul(bR).Mod(m)
	result := One().Mod(m)
	for i := n - 1; i >= 0; i-- {
		result = result.Mul(result).Mod(m)
		switch {
		case e.Bit(i) == 1 && f.Bit(i) == 1:
			result = result.Mul(abR).Mod(m)
		case e.Bit(i) == 1:
			result = result.Mul(aR).Mod(m)
		case f.Bit(i) == 1:
			result = result.Mul(bR).Mod(m)
		}
	}
	return result, nil
}
