package vdf

// VDF chain and beacon randomness extension.
//
// Extends the core Wesolowski engine (evaluate/prove/verify) with:
//   - Chain: chains multiple sequential VDF evaluations, where each step's
//     output feeds the next step's input, over a single fixed modulus.
//   - Beacon: uses a Chain to produce unbiasable, unpredictable randomness
//     for epoch-level duties (proposer selection, committee assignment) that
//     a pure evaluate/prove/verify engine does not itself provide.
//   - Thread-safe caching of verified chains and produced beacon outputs.
//     Unlike the core MontgomeryReducer cache, neither cache has a size
//     bound; entries stay until ClearCache / ClearBeaconCache.
//
// Every link is a full Wesolowski (Output, Proof) pair verified through the
// core Verify/VerifyWithChallenge path; this is not a hash-chain stand-in.

import (
	"encoding/binary"
	"sync"

	vdflog "github.com/eth2030/wesolowski-vdf/pkg/log"
	"golang.org/x/crypto/sha3"
)

var beaconLog = vdflog.Default().Module("vdf-beacon")

// MaxChainLength caps the number of links in a single chain evaluation, to
// bound the caller's exposure to an unbounded sequential computation.
const MaxChainLength = 256

// keccak256 hashes the concatenation of data using Keccak-256, the hash used
// for beacon/chain cache keys and seed derivation throughout this package.
func keccak256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

// ChainLink is one evaluation step in a Chain: a full Wesolowski proof whose
// output feeds the next link's input.
type ChainLink struct {
	Proof
}

// ChainProof is the result of evaluating a Chain: chainLength sequential
// Wesolowski proofs over a common modulus n and per-link delay t, each
// link's output equal to the next link's input.
type ChainProof struct {
	Links       []ChainLink
	ChainLength uint64
	N           *Int
	T           uint64
	Seed        *Int // input to the first link
	FinalOutput *Int // output of the last link
}

// Chain evaluates and verifies multi-link VDF chains over a fixed modulus,
// caching verified chains to avoid redundant re-verification.
type Chain struct {
	mu             sync.RWMutex
	n              *Int
	t              uint64
	verifiedChains map[string]bool
}

// NewChain creates a chain evaluator over modulus n with itersPerLink
// sequential squarings per link. itersPerLink must be >= 1; smaller values
// are clamped to 1.
func NewChain(n *Int, itersPerLink uint64) *Chain {
	if itersPerLink < 1 {
		itersPerLink = 1
	}
	return &Chain{
		n:              n,
		t:              itersPerLink,
		verifiedChains: make(map[string]bool),
	}
}

// EvaluateChain runs chainLength sequential VDF evaluations starting from
// seed, feeding each link's output h into the next link's input x. Every
// link's (Output, nonce) pair is sealed into a full Wesolowski proof.
//
// seed must satisfy the same invariants Evaluate requires of x: 0 < seed < n
// and gcd(seed, n) = 1.
func (c *Chain) EvaluateChain(seed *Int, chainLength uint64) (*ChainProof, error) {
	if chainLength == 0 {
		return nil, rangeErrf("chainLength", "chain length must be positive")
	}
	if chainLength > MaxChainLength {
		return nil, rangeErrf("chainLength", "chain length %d exceeds maximum %d", chainLength, MaxChainLength)
	}

	links := make([]ChainLink, chainLength)
	x := seed
	for i := uint64(0); i < chainLength; i++ {
		out, err := Evaluate(x, Params{N: c.n, T: c.t})
		if err != nil {
			return nil, err
		}
		proof, err := GenerateProof(out, nil)
		if err != nil {
			return nil, err
		}
		links[i] = ChainLink{Proof: proof}
		x = nextLinkInput(out.H, c.n)
	}

	beaconLog.Debug("evaluated chain", "length", chainLength, "bits", c.n.BitLen(), "t", c.t)

	return &ChainProof{
		Links:       links,
		ChainLength: chainLength,
		N:           c.n,
		T:           c.t,
		Seed:        seed,
		FinalOutput: links[chainLength-1].H,
	}, nil
}

// nextLinkInput derives the next link's input from the previous link's
// output h. h is already 0 < h < n by Evaluate's postcondition, but gcd(h,n)
// = 1 isn't guaranteed in the abstract (only overwhelmingly likely for an
// RSA semiprime n); on the vanishing-probability event that h shares a
// factor with n, nudging by one preserves 0 < x < n while escaping the
// shared factor.
func nextLinkInput(h, n *Int) *Int {
	x := h
	for x.GCD(n).Cmp(One()) != 0 {
		x = x.Add(One()).Mod(n)
		if x.Sign() == 0 {
			x = One()
		}
	}
	return x
}

// VerifyChain verifies every link in a ChainProof: each link's Wesolowski
// proof independently (via VerifyWithChallenge), and that consecutive links
// are properly chained (link[i].H feeds link[i+1].X).
//
// Verified chains are cached under a key derived from (Seed, ChainLength)
// only. Once a chain with a given seed and length has verified, any later
// ChainProof with the same seed and length is accepted from the cache
// without its links being checked.
func (c *Chain) VerifyChain(cp *ChainProof) bool {
	if cp == nil || cp.ChainLength == 0 || uint64(len(cp.Links)) != cp.ChainLength {
		return false
	}
	if cp.Seed == nil || cp.FinalOutput == nil {
		return false
	}

	key := c.chainCacheKey(cp)
	c.mu.RLock()
	if c.verifiedChains[key] {
		c.mu.RUnlock()
		return true
	}
	c.mu.RUnlock()

	if !cp.Links[0].X.Equal(cp.Seed) {
		return false
	}
	for i := range cp.Links {
		if !VerifyWithChallenge(cp.Links[i].Proof) {
			return false
		}
	}
	for i := 0; i+1 < len(cp.Links); i++ {
		if !nextLinkInput(cp.Links[i].H, cp.N).Equal(cp.Links[i+1].X) {
			return false
		}
	}
	last := len(cp.Links) - 1
	if !cp.Links[last].H.Equal(cp.FinalOutput) {
		return false
	}

	c.mu.Lock()
	c.verifiedChains[key] = true
	c.mu.Unlock()
	return true
}

// ClearCache empties the chain's verified-chain cache. Used by tests to
// assert cache behavior deterministically.
func (c *Chain) ClearCache() {
	c.mu.Lock()
	c.verifiedChains = make(map[string]bool)
	c.mu.Unlock()
}

// CacheSize returns the number of verified chains currently cached.
func (c *Chain) CacheSize() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.verifiedChains)
}

func (c *Chain) chainCacheKey(cp *ChainProof) string {
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], cp.ChainLength)
	return string(keccak256(cp.Seed.Bytes(), lenBuf[:]))
}

// BeaconOutput is the randomness produced by a Beacon for one epoch.
type BeaconOutput struct {
	Epoch      uint64
	Randomness [32]byte // unbiasable per-epoch randomness
	Proof      *ChainProof
}

// Beacon derives unbiasable, unpredictable epoch randomness from a VDF
// chain: the chain's sequential delay prevents the last party to reveal a
// seed contribution from biasing the outcome, since nobody can finish the
// chain faster than t*chainLength sequential squarings.
type Beacon struct {
	mu       sync.RWMutex
	chain    *Chain
	chainLen uint64
	cache    map[uint64]*BeaconOutput
}

// NewBeacon creates a beacon over the given chain, producing chainLen links
// per epoch. chainLen is clamped to [1, MaxChainLength].
func NewBeacon(chain *Chain, chainLen uint64) *Beacon {
	if chainLen < 1 {
		chainLen = 1
	}
	if chainLen > MaxChainLength {
		chainLen = MaxChainLength
	}
	return &Beacon{chain: chain, chainLen: chainLen, cache: make(map[uint64]*BeaconOutput)}
}

// ProduceBeaconRandomness runs a VDF chain for the given epoch, domain
// separating the caller-supplied seed (e.g. a RANDAO mix) by epoch number so
// the same seed never produces the same chain input twice, then derives
// 32-byte randomness from the chain's final output via Keccak-256.
func (b *Beacon) ProduceBeaconRandomness(epoch uint64, seed []byte) (*BeaconOutput, error) {
	if epoch == 0 {
		return nil, rangeErrf("epoch", "epoch must be positive")
	}
	if len(seed) == 0 {
		return nil, rangeErrf("seed", "seed must not be empty")
	}

	chainInput := seedToChainInput(epoch, seed, b.chain.n)
	chainProof, err := b.chain.EvaluateChain(chainInput, b.chainLen)
	if err != nil {
		return nil, err
	}

	var randomness [32]byte
	copy(randomness[:], keccak256(chainProof.FinalOutput.Bytes()))

	out := &BeaconOutput{Epoch: epoch, Randomness: randomness, Proof: chainProof}

	b.mu.Lock()
	b.cache[epoch] = out
	b.mu.Unlock()

	beaconLog.Debug("produced beacon randomness", "epoch", epoch)
	return out, nil
}

// VerifyBeaconRandomness re-evaluates the chain for (epoch, seed) and checks
// that it reproduces the claimed randomness. out.Proof must be non-nil, but
// its contents are not compared with the recomputed chain. This is a pure
// re-derivation check: it always recomputes, it never trusts the beacon
// cache.
func (b *Beacon) VerifyBeaconRandomness(out *BeaconOutput, seed []byte) bool {
	if out == nil || out.Epoch == 0 || out.Proof == nil {
		return false
	}
	if len(seed) == 0 {
		return false
	}

	chainInput := seedToChainInput(out.Epoch, seed, b.chain.n)
	chainProof, err := b.chain.EvaluateChain(chainInput, b.chainLen)
	if err != nil {
		return false
	}
	if !b.chain.VerifyChain(chainProof) {
		return false
	}

	var want [32]byte
	copy(want[:], keccak256(chainProof.FinalOutput.Bytes()))
	return want == out.Randomness
}

// GetCachedBeacon returns the cached BeaconOutput for epoch, or nil if none
// has been produced yet.
func (b *Beacon) GetCachedBeacon(epoch uint64) *BeaconOutput {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cache[epoch]
}

// ClearBeaconCache empties the epoch -> BeaconOutput cache.
func (b *Beacon) ClearBeaconCache() {
	b.mu.Lock()
	b.cache = make(map[uint64]*BeaconOutput)
	b.mu.Unlock()
}

// seedToChainInput domain-separates seed by epoch, then folds the digest
// into a valid chain input (0 < x < n, gcd(x,n) = 1).
func seedToChainInput(epoch uint64, seed []byte, n *Int) *Int {
	var epochBuf [8]byte
	binary.BigEndian.PutUint64(epochBuf[:], epoch)
	digest := keccak256(epochBuf[:], seed)
	x := IntFromBytes(digest).Mod(n)
	if x.Sign() == 0 {
		x = One()
	}
	return nextLinkInput(x, n)
}
