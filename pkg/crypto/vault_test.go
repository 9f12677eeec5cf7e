package crypto

import "testing"

func TestVaultSealOpenRoundTrip(t *testing.T) {
	v, err := NewVault("correct-horse-battery-staple", "deadbeefdeadbeefdeadbeefdeadbeef")
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}

	accessCipher, secretCipher, iv, tag, err := v.SealKeyPair("access-abc123", "secret-xyz789")
	if err != nil {
		t.Fatalf("SealKeyPair: %v", err)
	}

	access, secret, err := v.OpenKeyPair(accessCipher, secretCipher, iv, tag)
	if err != nil {
		t.Fatalf("OpenKeyPair: %v", err)
	}
	if access != "access-abc123" || secret != "secret-xyz789" {
		t.Fatalf("got access=%q secret=%q, want original plaintext back", access, secret)
	}
}

func TestVaultWrongPasswordFailsOpaquely(t *testing.T) {
	v1, _ := NewVault("password-one", "deadbeefdeadbeefdeadbeefdeadbeef")
	v2, _ := NewVault("password-two", "deadbeefdeadbeefdeadbeefdeadbeef")

	accessCipher, secretCipher, iv, tag, err := v1.SealKeyPair("access", "secret")
	if err != nil {
		t.Fatalf("SealKeyPair: %v", err)
	}

	_, _, err = v2.OpenKeyPair(accessCipher, secretCipher, iv, tag)
	if err != ErrKeyRecordNotFound {
		t.Fatalf("expected ErrKeyRecordNotFound, got %v", err)
	}
}

func TestVaultCorruptCiphertextFailsOpaquely(t *testing.T) {
	v, _ := NewVault("password", "deadbeefdeadbeefdeadbeefdeadbeef")
	accessCipher, secretCipher, iv, tag, err := v.SealKeyPair("access", "secret")
	if err != nil {
		t.Fatalf("SealKeyPair: %v", err)
	}

	corrupted := accessCipher[:len(accessCipher)-2] + "00"
	if _, _, err := v.OpenKeyPair(corrupted, secretCipher, iv, tag); err != ErrKeyRecordNotFound {
		t.Fatalf("expected ErrKeyRecordNotFound, got %v", err)
	}
}

func TestSealKeyPairProducesDistinctNonces(t *testing.T) {
	v, _ := NewVault("password", "deadbeefdeadbeefdeadbeefdeadbeef")
	_, _, iv1, _, _ := v.SealKeyPair("access", "secret")
	_, _, iv2, _, _ := v.SealKeyPair("access", "secret")
	if iv1 == iv2 {
		t.Error("expected distinct ivs across seal calls")
	}
}

func TestMaskKeyPair(t *testing.T) {
	maskedAccess, maskedSecret := MaskKeyPair("ABCDEFGHIJKLMNOP", "0123456789")
	if maskedAccess != "ABCDEFGH****MNOP" {
		t.Errorf("got %q, want %q", maskedAccess, "ABCDEFGH****MNOP")
	}
	if maskedSecret != "******6789" {
		t.Errorf("got %q, want %q", maskedSecret, "******6789")
	}
}

func TestMaskKeyPairShortInputs(t *testing.T) {
	maskedAccess, maskedSecret := MaskKeyPair("abc", "xy")
	if maskedAccess != "***" {
		t.Errorf("got %q, want ***", maskedAccess)
	}
	if maskedSecret != "**" {
		t.Errorf("got %q, want **", maskedSecret)
	}
}
