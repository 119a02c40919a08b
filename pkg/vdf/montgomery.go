package vdf

import (
	"sync"

	vdflog "github.com/eth2030/wesolowski-vdf/pkg/log"
)

var montgomeryLog = vdflog.Default().Module("montgomery")

// MontgomeryReducer performs Montgomery multiplication modulo a fixed odd
// modulus n. It precomputes R = 2^rBits (the smallest power of two strictly
// greater than n), the mask R-1, and n' = (-n^-1) mod R via Hensel lifting,
// following the same structure as the Go standard library's
// crypto/internal/bigmod reducer -- but operating on whole Int values rather
// than saturated machine-word limbs, since this module has no constant-time
// requirement -- the caller controls the modulus and exponent, and
// side-channel resistance is out of scope for this package.
//
// A MontgomeryReducer is immutable after construction and safe for
// concurrent use by multiple goroutines.
type MontgomeryReducer struct {
	n      *Int
	rBits  int
	r      *Int
	rMask  *Int
	nPrime *Int
}

// NewMontgomeryReducer builds a reducer for the given odd modulus. Returns a
// *RangeError if n is even or not positive.
func NewMontgomeryReducer(n *Int) (*MontgomeryReducer, error) {
	if n.Sign() <= 0 {
		return nil, rangeErrf("n", "modulus must be positive")
	}
	if !n.IsOdd() {
		return nil, rangeErrf("n", "Montgomery reducer requires an odd modulus")
	}

	rBits := n.BitLen()
	r := One().Lsh(uint(rBits))
	if r.Cmp(n) <= 0 {
		rBits++
		r = One().Lsh(uint(rBits))
	}
	rMask := r.Sub(One())

	// Hensel lifting: nInv <- nInv * (2 - n*nInv) mod R, doubling the number
	// of correct low-order bits each round. nInv = 1 is already correct mod 2
	// (n is odd), so rBits rounds are more than enough to reach rBits bits.
	nInv := One()
	two := Two()
	for i := 0; i < rBits; i++ {
		t := two.Sub(n.Mul(nInv))
		nInv = nInv.Mul(t).And(rMask)
	}
	nPrime := r.Sub(nInv).And(rMask)

	return &MontgomeryReducer{
		n:      n.Clone(),
		rBits:  rBits,
		r:      r,
		rMask:  rMask,
		nPrime: nPrime,
	}, nil
}

// Modulus returns the modulus this reducer was built for.
func (m *MontgomeryReducer) Modulus() *Int { return m.n.Clone() }

// ToMontgomery converts a (0 <= a < n) into Montgomery form: a*R mod n.
func (m *MontgomeryReducer) ToMontgomery(a *Int) *Int {
	return a.Mul(m.r).Mod(m.n)
}

// Reduce computes x*R^-1 mod n for 0 <= x < n*R, the core Montgomery
// reduction step used by both ToMontgomery's inverse and Multiply/Square.
func (m *MontgomeryReducer) Reduce(x *Int) *Int {
	t := x.And(m.rMask).Mul(m.nPrime).And(m.rMask) // m <- (x mod R) * n' mod R
	t = x.Add(t.Mul(m.n)).Rsh(uint(m.rBits))        // t <- (x + m*n) / R
	if t.Cmp(m.n) >= 0 {
		t = t.Sub(m.n)
	}
	return t
}

// FromMontgomery converts a value out of Montgomery form.
func (m *MontgomeryReducer) FromMontgomery(a *Int) *Int {
	return m.Reduce(a)
}

// Multiply computes a*b in Montgomery form (both a and b must already be in
// Montgomery form; the result is too).
func (m *MontgomeryReducer) Multiply(a, b *Int) *Int {
	return m.Reduce(a.Mul(b))
}

// Square computes a*a in Montgomery form.
func (m *MontgomeryReducer) Square(a *Int) *Int {
	return m.Reduce(a.Mul(a))
}

// montgomeryMinBits gates the routing policy shared by evaluate/prove and
// modpow: Montgomery pays off only once the modulus is large enough to
// amortize the conversion cost. The iteration-count threshold (5000) and the
// exponent bit-length threshold (128) are written inline in the two
// functions below.
const montgomeryMinBits = 1024

// shouldUseMontgomeryForSquarings decides whether a repeated-squaring loop
// of t iterations modulo n should route through Montgomery form.
func shouldUseMontgomeryForSquarings(n *Int, t uint64) bool {
	return n.IsOdd() && n.BitLen() >= montgomeryMinBits && t >= 5000
}

// shouldUseMontgomeryForExp decides whether a single modpow with the given
// exponent bit length should route through Montgomery form.
func shouldUseMontgomeryForExp(n *Int, exponentBits int) bool {
	return n.IsOdd() && n.BitLen() >= montgomeryMinBits && exponentBits >= 128
}

// ---------------------------------------------------------------------------
// Process-wide bounded reducer cache: at most 10 entries, inserted but
// never evicted. Concurrent callers that race on the first
// insertion for a given modulus may each construct a reducer; only one wins
// the cache slot. That is an accepted, harmless race (reducers for the same
// modulus are interchangeable).
// ---------------------------------------------------------------------------

const reducerCacheLimit = 10

var (
	reducerCacheMu sync.Mutex
	reducerCache   = make(map[string]*MontgomeryReducer)
)

// getMontgomeryReducer returns a cached reducer for n, constructing and
// (space permitting) caching one if none exists yet.
func getMontgomeryReducer(n *Int) (*MontgomeryReducer, error) {
	key := n.Hex()

	reducerCacheMu.Lock()
	if r, ok := reducerCache[key]; ok {
		reducerCacheMu.Unlock()
		return r, nil
	}
	reducerCacheMu.Unlock()

	r, err := NewMontgomeryReducer(n)
	if err != nil {
		return nil, err
	}

	reducerCacheMu.Lock()
	if len(reducerCache) < reducerCacheLimit {
		reducerCache[key] = r
		montgomeryLog.Debug("cached reducer", "bits", n.BitLen(), "cacheSize", len(reducerCache))
	}
	reducerCacheMu.Unlock()

	return r, nil
}

// clearMontgomeryReducerCache empties the process-wide reducer cache. Used
// by tests to assert cache-bound behavior deterministically.
func clearMontgomeryReducerCache() {
	reducerCacheMu.Lock()
	reducerCache = make(map[string]*MontgomeryReducer)
	reducerCacheMu.Unlock()
}
