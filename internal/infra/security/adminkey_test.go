package security

import (
	"strings"
	"testing"
)

func TestHashAdminKey_RoundTrip(t *testing.T) {
	hash, err := HashAdminKey("super-secret-admin-key")
	if err != nil {
		t.Fatalf("HashAdminKey failed: %v", err)
	}

	ok, err := VerifyAdminKey("super-secret-admin-key", hash)
	if err != nil {
		t.Fatalf("VerifyAdminKey failed: %v", err)
	}
	if !ok {
		t.Fatal("expected matching key to verify")
	}

	ok, err = VerifyAdminKey("wrong-key", hash)
	if err != nil {
		t.Fatalf("VerifyAdminKey failed: %v", err)
	}
	if ok {
		t.Fatal("expected mismatched key to fail verification")
	}
}

func TestHashAdminKey_EncodedFormat(t *testing.T) {
	hash, err := HashAdminKey("some-key")
	if err != nil {
		t.Fatalf("HashAdminKey failed: %v", err)
	}

	if !strings.HasPrefix(hash, "argon2id$v=19$m=65536,t=3,p=4$") {
		t.Errorf("unexpected hash prefix: %s", hash)
	}
	if parts := strings.Split(hash, "$"); len(parts) != 5 {
		t.Errorf("expected 5 hash segments, got %d", len(parts))
	}
}

func TestVerifyAdminKey_EmptyInputs(t *testing.T) {
	hash, err := HashAdminKey("some-key")
	if err != nil {
		t.Fatalf("HashAdminKey failed: %v", err)
	}

	if ok, err := VerifyAdminKey("", hash); err != nil || ok {
		t.Errorf("empty key: expected (false, nil), got (%v, %v)", ok, err)
	}
	if ok, err := VerifyAdminKey("some-key", ""); err != nil || ok {
		t.Errorf("empty hash: expected (false, nil), got (%v, %v)", ok, err)
	}
}

func TestVerifyAdminKey_MalformedHash(t *testing.T) {
	tests := []string{
		"garbage",
		"argon2id$v=19$m=65536,t=3,p=4$onlyfour",
		"bcrypt$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA",
		"argon2id$v=18$m=65536,t=3,p=4$c2FsdA$aGFzaA",
		"argon2id$v=19$m=65536,t=3$c2FsdA$aGFzaA",
	}

	for _, encoded := range tests {
		if _, err := VerifyAdminKey("key", encoded); err == nil {
			t.Errorf("expected error for malformed hash %q", encoded)
		}
	}
}
