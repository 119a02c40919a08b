package vdf

// transcriptTag is the ASCII tag prefixed to every challenge transcript, with
// no length prefix and no terminator.
const transcriptTag = "wesolowski-v1"

const nonceLen = 32

// encodeTranscript builds the canonical byte payload used to derive a
// Fiat-Shamir challenge: TAG || X || H || T || N || NONCE, where X,
// H, and N are big-endian zero-padded to nLen = the minimal byte length of n,
// and T is 8 bytes big-endian. Any deviation in this encoding changes the
// resulting challenge, so this function's byte layout is consensus-critical
// and must never change shape.
func encodeTranscript(x, h *Int, t uint64, n *Int, nonce []byte) ([]byte, error) {
	if len(nonce) != nonceLen {
		return nil, rangeErrf("nonce", "nonce must be exactly %d bytes, got %d", nonceLen, len(nonce))
	}

	nLen := (n.BitLen() + 7) / 8
	if nLen == 0 {
		return nil, rangeErrf("n", "modulus must be positive")
	}

	xBytes, err := x.FillBytes(nLen)
	if err != nil {
		return nil, rangeErrf("x", "x does not fit in %d bytes (modulus width): %v", nLen, err)
	}
	hBytes, err := h.FillBytes(nLen)
	if err != nil {
		return nil, rangeErrf("h", "h does not fit in %d bytes (modulus width): %v", nLen, err)
	}
	nBytes, err := n.FillBytes(nLen)
	if err != nil {
		return nil, rangeErrf("n", "n does not fit in its own minimal byte length: %v", err)
	}

	payload := make([]byte, 0, len(transcriptTag)+3*nLen+8+nonceLen)
	payload = append(payload, transcriptTag...)
	payload = append(payload, xBytes...)
	payload = append(payload, hBytes...)
	payload = append(payload, encodeU64BE(t)...)
	payload = append(payload, nBytes...)
	payload = append(payload, nonce...)
	return payload, nil
}

// encodeU64BE encodes t as 8 bytes, big-endian.
func encodeU64BE(t uint64) []byte {
	var buf [8]byte
	for i := 7; i >= 0; i-- {
		buf[i] = byte(t)
		t >>= 8
	}
	return buf[:]
}
