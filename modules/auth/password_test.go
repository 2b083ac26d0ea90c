package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	hasher := NewPasswordHasherWithCost(bcrypt.MinCost)

	tests := []struct {
		name     string
		password string
	}{
		{name: "simple password", password: "password123"},
		{name: "password with symbols", password: "p@$$w0rd!#%"},
		{name: "unicode password", password: "pässwörd123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := hasher.Hash(tt.password)
			if err != nil {
				t.Fatalf("Hash() error = %v", err)
			}

			if hash == tt.password {
				t.Error("Hash() returned the password unchanged")
			}
			if !strings.HasPrefix(hash, "$2") {
				t.Errorf("Hash() = %q, want bcrypt format", hash)
			}

			if !hasher.Verify(tt.password, hash) {
				t.Error("Verify() = false for correct password")
			}
			if hasher.Verify("wrong-password", hash) {
				t.Error("Verify() = true for wrong password")
			}
		})
	}
}

func TestPasswordHasher_RejectsOverlongPassword(t *testing.T) {
	hasher := NewPasswordHasherWithCost(bcrypt.MinCost)

	// 72 bytes is bcrypt's limit; anything past it would be silently
	// truncated, so Hash refuses instead.
	if _, err := hasher.Hash(strings.Repeat("a", 72)); err != nil {
		t.Errorf("Hash() rejected a 72-byte password: %v", err)
	}
	if _, err := hasher.Hash(strings.Repeat("a", 73)); !errors.Is(err, ErrPasswordTooLong) {
		t.Errorf("Hash() error = %v, want ErrPasswordTooLong", err)
	}
}

func TestPasswordHasher_CostClamping(t *testing.T) {
	if got := NewPasswordHasherWithCost(0).cost; got != bcrypt.MinCost {
		t.Errorf("cost = %d, want clamped to %d", got, bcrypt.MinCost)
	}
	if got := NewPasswordHasherWithCost(99).cost; got != bcrypt.MaxCost {
		t.Errorf("cost = %d, want clamped to %d", got, bcrypt.MaxCost)
	}
	if got := NewPasswordHasher().cost; got != 12 {
		t.Errorf("default cost = %d, want 12", got)
	}
}

func TestPasswordHasher_DistinctHashes(t *testing.T) {
	hasher := NewPasswordHasherWithCost(bcrypt.MinCost)

	first, err := hasher.Hash("password123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	second, err := hasher.Hash("password123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	// bcrypt salts every hash
	if first == second {
		t.Error("expected distinct hashes for the same password")
	}
}
