package vdf

import "testing"

func smallTestModulus() *Int {
	// 1000000007 * 1000000009
	return NewInt(1000000007).Mul(NewInt(1000000009))
}

func TestEvaluateRejectsInvalidInputs(t *testing.T) {
	n := smallTestModulus()

	if _, err := Evaluate(NewInt(0), Params{N: n, T: 10}); err == nil {
		t.Error("expected error for x = 0")
	}
	if _, err := Evaluate(n, Params{N: n, T: 10}); err == nil {
		t.Error("expected error for x = n")
	}
	if _, err := Evaluate(NewInt(5), Params{N: n, T: 0}); err == nil {
		t.Error("expected error for t = 0")
	}
	if _, err := Evaluate(NewInt(1000000007), Params{N: n, T: 10}); err == nil {
		t.Error("expected error for x sharing a factor with n")
	}
	if _, err := Evaluate(NewInt(5), Params{N: NewInt(4), T: 10}); err == nil {
		t.Error("expected error for even modulus")
	}
}

func TestEvaluateSquaringDefinition(t *testing.T) {
	n := smallTestModulus()
	x := NewInt(123456791)
	const t20 = 20

	out, err := Evaluate(x, Params{N: n, T: t20})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	h := x.Mod(n)
	for i := 0; i < t20; i++ {
		h = h.Mul(h).Mod(n)
	}
	if !out.H.Equal(h) {
		t.Errorf("Evaluate result does not match explicit nested squaring")
	}
}

func TestRoundtripSmallModulus(t *testing.T) {
	n := smallTestModulus()
	x := NewInt(123456791)

	out, err := Evaluate(x, Params{N: n, T: 100})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	proof, err := GenerateProof(out, nil)
	if err != nil {
		t.Fatalf("GenerateProof: %v", err)
	}
	if !Verify(proof) {
		t.Error("Verify() = false, want true")
	}
	if !VerifyWithChallenge(proof) {
		t.Error("VerifyWithChallenge() = false, want true")
	}
}

func TestTamperedPiRejected(t *testing.T) {
	n := smallTestModulus()
	out, err := Evaluate(NewInt(123456791), Params{N: n, T: 100})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	proof, err := GenerateProof(out, nil)
	if err != nil {
		t.Fatalf("GenerateProof: %v", err)
	}
	proof.Pi = proof.Pi.Add(One())
	if Verify(proof) {
		t.Error("Verify() = true for tampered pi, want false")
	}
}

func TestTamperedHRejected(t *testing.T) {
	n := smallTestModulus()
	out, err := Evaluate(NewInt(123456791), Params{N: n, T: 100})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	proof, err := GenerateProof(out, nil)
	if err != nil {
		t.Fatalf("GenerateProof: %v", err)
	}
	proof.H = proof.H.Add(One())
	if Verify(proof) {
		t.Error("Verify() = true for tampered h, want false")
	}
}

func TestTamperedLRejectedByVerifyWithChallenge(t *testing.T) {
	n := smallTestModulus()
	out, err := Evaluate(NewInt(123456791), Params{N: n, T: 100})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	proof, err := GenerateProof(out, nil)
	if err != nil {
		t.Fatalf("GenerateProof: %v", err)
	}
	proof.L = proof.L.Add(Two())
	if VerifyWithChallenge(proof) {
		t.Error("VerifyWithChallenge() = true for tampered l, want false")
	}
}

func TestLargeModulusSmokeTest(t *testing.T) {
	out, err := Evaluate(NewInt(2), Params{N: RSA_2048, T: 300})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	proof, err := GenerateProof(out, nil)
	if err != nil {
		t.Fatalf("GenerateProof: %v", err)
	}
	if !Verify(proof) {
		t.Error("Verify() = false for RSA_2048 smoke test, want true")
	}
}

func TestEquationIdentity(t *testing.T) {
	n := smallTestModulus() // stands in for TEST_MODULUS
	x := NewInt(7)
	const tParam = 50

	out, err := Evaluate(x, Params{N: n, T: tParam})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	nonce := testNonce(0x42)
	l, err := DeriveChallenge(out, nonce)
	if err != nil {
		t.Fatalf("DeriveChallenge: %v", err)
	}
	pi, err := Prove(out, l)
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}

	r := powModSmall(tParam, l)
	lhs, err := ModPow(pi, l, n)
	if err != nil {
		t.Fatalf("ModPow(pi, l, n): %v", err)
	}
	rhs, err := ModPow(x, r, n)
	if err != nil {
		t.Fatalf("ModPow(x, r, n): %v", err)
	}
	got := lhs.Mul(rhs).Mod(n)
	if !got.Equal(out.H) {
		t.Errorf("(pi^l * x^r) mod n = %s, want h = %s", got.String(), out.H.String())
	}
}

func TestChallengeBinding(t *testing.T) {
	n := smallTestModulus()
	out, err := Evaluate(NewInt(123456791), Params{N: n, T: 50})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	nonceA := testNonce(0x01)
	nonceB := testNonce(0x02)

	lA, err := DeriveChallenge(out, nonceA)
	if err != nil {
		t.Fatalf("DeriveChallenge: %v", err)
	}
	piA, err := Prove(out, lA)
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	proof := Proof{Output: out, Pi: piA, L: lA, Nonce: nonceB}
	if VerifyWithChallenge(proof) {
		t.Error("VerifyWithChallenge() = true with mismatched nonce, want false")
	}
}

func TestMontgomeryParity(t *testing.T) {
	clearMontgomeryReducerCache()
	n := RSA_2048
	x := NewInt(5)
	const tParam = 6000 // above the 5000-iteration Montgomery threshold

	outMontgomery, err := Evaluate(x, Params{N: n, T: tParam})
	if err != nil {
		t.Fatalf("Evaluate (Montgomery path): %v", err)
	}

	h := x.Mod(n)
	for i := 0; i < tParam; i++ {
		h = h.Mul(h).Mod(n)
	}
	if !outMontgomery.H.Equal(h) {
		t.Error("Montgomery-routed evaluate disagrees with plain repeated squaring")
	}
}

func TestGenerateProofRejectsBadNonceLength(t *testing.T) {
	n := smallTestModulus()
	out, err := Evaluate(NewInt(123456791), Params{N: n, T: 10})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if _, err := GenerateProof(out, make([]byte, 16)); err == nil {
		t.Error("expected error for short nonce")
	}
}

func TestVerifyRejectsBoundsViolations(t *testing.T) {
	n := smallTestModulus()
	out, err := Evaluate(NewInt(123456791), Params{N: n, T: 10})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	proof, err := GenerateProof(out, nil)
	if err != nil {
		t.Fatalf("GenerateProof: %v", err)
	}

	zeroPi := proof
	zeroPi.Pi = Zero()
	if Verify(zeroPi) {
		t.Error("Verify() = true with pi = 0, want false")
	}

	oobX := proof
	oobX.X = n.Clone()
	if Verify(oobX) {
		t.Error("Verify() = true with x = n, want false")
	}

	smallL := proof
	smallL.L = Two()
	if Verify(smallL) {
		t.Error("Verify() = true with l = 2, want false")
	}

	compositeL := proof
	compositeL.L = NewInt(9)
	if Verify(compositeL) {
		t.Error("Verify() = true with composite l, want false")
	}
}
