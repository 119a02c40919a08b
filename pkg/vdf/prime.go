package vdf

import (
	"crypto/rand"
	"io"
)

// DefaultRounds is the default number of Miller-Rabin rounds used by
// IsPrime, NextPrime, and GetPrime when the caller doesn't specify a count.
const DefaultRounds = 32

// randReader is the CSPRNG used throughout this file. It is a package
// variable (rather than a parameter threaded through every call) so tests
// can substitute a deterministic source; production code never overrides
// it.
var randReader io.Reader = rand.Reader

// wheelModulus is 2*3*5*7, the primorial the wheel sieve walks.
const wheelModulus = 210

// smallPrimes holds every prime <= 1000, sieved once at package init and
// used for trial division before any Miller-Rabin round runs.
var smallPrimes []int

// wheelResidues holds the residues mod wheelModulus that are coprime to
// 2, 3, 5, and 7, in ascending order. wheelDeltas[i] is the gap from
// wheelResidues[i] to the next residue in the cycle (wrapping at the end).
var (
	wheelResidues []int
	wheelDeltas   []int
)

func init() {
	smallPrimes = sieve(1000)
	wheelResidues = wheelCoprimeResidues(wheelModulus, []int{2, 3, 5, 7})
	wheelDeltas = wheelGaps(wheelResidues, wheelModulus)
}

func sieve(limit int) []int {
	composite := make([]bool, limit+1)
	var primes []int
	for i := 2; i <= limit; i++ {
		if composite[i] {
			continue
		}
		primes = append(primes, i)
		for j := i * i; j <= limit; j += i {
			composite[j] = true
		}
	}
	return primes
}

func wheelCoprimeResidues(modulus int, factors []int) []int {
	var out []int
	for r := 1; r < modulus; r++ {
		coprime := true
		for _, f := range factors {
			if r%f == 0 {
				coprime = false
				break
			}
		}
		if coprime {
			out = append(out, r)
		}
	}
	return out
}

func wheelGaps(residues []int, modulus int) []int {
	deltas := make([]int, len(residues))
	for i := 0; i < len(residues)-1; i++ {
		deltas[i] = residues[i+1] - residues[i]
	}
	last := len(residues) - 1
	deltas[last] = modulus - residues[last] + residues[0]
	return deltas
}

// alignToWheel returns the smallest q >= p such that q mod wheelModulus is a
// wheel residue, along with that residue's index in wheelResidues/wheelDeltas
// (so the caller can continue the walk with wheelDeltas[idx], ...).
func alignToWheel(p *Int) (*Int, int) {
	rem := int(p.Mod(NewInt(wheelModulus)).Big().Int64())

	for idx, r := range wheelResidues {
		if r >= rem {
			return p.Add(NewInt(int64(r - rem))), idx
		}
	}
	// rem is past the last residue in this cycle; wrap to the first residue
	// of the next cycle.
	delta := wheelModulus - rem + wheelResidues[0]
	return p.Add(NewInt(int64(delta))), 0
}

// deterministicBound is the bound below which Miller-Rabin with the fixed
// witness set {2,3,5,7,11,13,17,19,23,29,31,37} is a proven deterministic
// primality test.
var deterministicBound = mustDecimal("318665857834031151167461")

func mustDecimal(s string) *Int {
	v, err := IntFromDecimal(s)
	if err != nil {
		panic(err)
	}
	return v
}

var deterministicWitnesses = []int64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37}

// decomposeOddPart writes m = 2^s * d with d odd, and returns (d, s).
func decomposeOddPart(m *Int) (*Int, int) {
	d := m.Clone()
	s := 0
	for !d.IsOdd() {
		d = d.Rsh(1)
		s++
	}
	return d, s
}

// millerRabinRound runs a single Miller-Rabin round with witness a against
// n-1 = 2^s * d.
func millerRabinRound(n, d *Int, s int, a *Int) bool {
	x, err := ModPow(a, d, n)
	if err != nil {
		// a, d, n are all well-formed by construction; ModPow only errors on
		// invariant violations that can't occur here.
		return false
	}
	nMinus1 := n.Sub(One())
	if x.Equal(One()) || x.Equal(nMinus1) {
		return true
	}
	for r := 1; r < s; r++ {
		x = x.Mul(x).Mod(n)
		if x.Equal(nMinus1) {
			return true
		}
		if x.Equal(One()) {
			return false
		}
	}
	return false
}

func millerRabinDeterministic(n *Int) bool {
	d, s := decomposeOddPart(n.Sub(One()))
	nMinus1 := n.Sub(One())
	for _, w := range deterministicWitnesses {
		a := NewInt(w)
		if a.Cmp(nMinus1) >= 0 {
			break
		}
		if !millerRabinRound(n, d, s, a) {
			return false
		}
	}
	return true
}

// millerRabinProbabilistic draws `rounds` witnesses from the CSPRNG -- all
// in a single read, per the module's accepted design alternative -- and
// rejects n as soon as any witness proves it composite.
func millerRabinProbabilistic(n *Int, rounds int) (bool, error) {
	d, s := decomposeOddPart(n.Sub(One()))
	byteLen := (n.BitLen() + 7) / 8
	buf := make([]byte, rounds*byteLen)
	if _, err := io.ReadFull(randReader, buf); err != nil {
		return false, err
	}

	span := n.Sub(NewInt(3)) // witnesses drawn from [2, n-2] => span = n-3, then +2
	for r := 0; r < rounds; r++ {
		chunk := buf[r*byteLen : (r+1)*byteLen]
		a := IntFromBytes(chunk).Mod(span).Add(Two())
		if !millerRabinRound(n, d, s, a) {
			return false, nil
		}
	}
	return true, nil
}

// doIsPrime implements the full isPrime algorithm: small-case handling,
// trial division by primes <= 1000, then deterministic or probabilistic
// Miller-Rabin depending on n's size.
func doIsPrime(n *Int, rounds int) (bool, error) {
	if n.Cmp(Two()) < 0 {
		return false, nil
	}
	if n.Equal(Two()) || n.Equal(NewInt(3)) {
		return true, nil
	}
	if !n.IsOdd() {
		return false, nil
	}

	for _, p := range smallPrimes {
		pInt := NewInt(int64(p))
		if n.Equal(pInt) {
			return true, nil
		}
		if n.Mod(pInt).Sign() == 0 {
			return false, nil
		}
	}

	if n.Cmp(deterministicBound) < 0 {
		return millerRabinDeterministic(n), nil
	}
	return millerRabinProbabilistic(n, rounds)
}

// IsPrime reports whether n is prime, using DefaultRounds of Miller-Rabin
// in the probabilistic regime.
func IsPrime(n *Int) bool {
	return IsPrimeRounds(n, DefaultRounds)
}

// IsPrimeRounds reports whether n is prime, using the given number of
// Miller-Rabin rounds in the probabilistic regime (ignored below
// deterministicBound, where the fixed witness set is exact). Panics if the
// CSPRNG fails, which in practice never happens on a functioning OS.
func IsPrimeRounds(n *Int, rounds int) bool {
	ok, err := doIsPrime(n, rounds)
	if err != nil {
		panic("vdf: CSPRNG read failed during primality test: " + err.Error())
	}
	return ok
}

// nextPrimeSmall hard-codes NextPrime for n <= 7, where trial division and
// Miller-Rabin are overkill.
func nextPrimeSmall(n int64) *Int {
	switch {
	case n <= 2:
		return NewInt(2)
	case n == 3:
		return NewInt(3)
	case n <= 5:
		return NewInt(5)
	default: // n == 6 or 7
		return NewInt(7)
	}
}

// NextPrime returns the least prime >= n, using DefaultRounds of
// Miller-Rabin.
func NextPrime(n *Int) *Int {
	return NextPrimeRounds(n, DefaultRounds)
}

// NextPrimeRounds returns the least prime >= n: n itself if n is already
// prime, otherwise the least prime strictly greater than n-1. Small n are
// hard-coded; larger n are found by aligning to the mod-210 wheel and
// walking forward, testing IsPrimeRounds at each step.
func NextPrimeRounds(n *Int, rounds int) *Int {
	if n.Cmp(NewInt(8)) < 0 {
		return nextPrimeSmall(n.Big().Int64())
	}

	q, idx := alignToWheel(n)
	for {
		// Defensive: by construction q >= n >= 8 always holds here, so this
		// never triggers. Kept per the tiny-case recheck the design calls
		// out as intentionally dead.
		if q.Cmp(NewInt(8)) < 0 {
			return nextPrimeSmall(q.Big().Int64())
		}
		if IsPrimeRounds(q, rounds) {
			return q
		}
		q = q.Add(NewInt(int64(wheelDeltas[idx])))
		idx = (idx + 1) % len(wheelDeltas)
	}
}

// GetPrime generates a random prime of exactly `bits` bits, using
// DefaultRounds of Miller-Rabin.
func GetPrime(bits int) (*Int, error) {
	return GetPrimeRounds(bits, DefaultRounds)
}

// GetPrimeRounds generates a random prime of exactly `bits` bits: it samples
// ceil(bits/8) random bytes, clears any bits above bit bits-1, forces bit
// bits-1 (so the value has exactly the requested bit length) and the low bit
// (so it's odd), aligns to the wheel, and walks forward testing
// IsPrimeRounds until one accepts. If alignment or the walk would overflow
// 2^bits - 1, the whole draw restarts. bits must be at least 4: the wheel
// walk never lands on 2, 3, 5 or 7.
func GetPrimeRounds(bits int, rounds int) (*Int, error) {
	if bits < 4 {
		return nil, rangeErrf("bits", "prime bit length must be >= 4")
	}
	byteLen := (bits + 7) / 8
	maxVal := One().Lsh(uint(bits)).Sub(One())
	excess := uint(8*byteLen - bits)

	for {
		buf := make([]byte, byteLen)
		if _, err := io.ReadFull(randReader, buf); err != nil {
			return nil, err
		}
		buf[0] &= 0xFF >> excess
		buf[0] |= 0x80 >> excess
		buf[byteLen-1] |= 0x01

		candidate := IntFromBytes(buf)
		q, idx := alignToWheel(candidate)
		if q.Cmp(maxVal) > 0 {
			continue // restart the draw
		}

		overflowed := false
		for {
			if IsPrimeRounds(q, rounds) {
				return q, nil
			}
			q = q.Add(NewInt(int64(wheelDeltas[idx])))
			idx = (idx + 1) % len(wheelDeltas)
			if q.Cmp(maxVal) > 0 {
				overflowed = true
				break
			}
		}
		if overflowed {
			continue // restart the draw
		}
	}
}
