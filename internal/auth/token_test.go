package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestIssueAndVerify_RoundTrip(t *testing.T) {
	s := NewSigner("test-secret", 30*time.Minute, 7*24*time.Hour)
	uid := uuid.New()

	pair, err := s.IssuePair(uid, "user")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	claims, err := s.Verify(pair.AccessToken, KindAccess)
	if err != nil {
		t.Fatalf("Verify(access): %v", err)
	}
	if claims.Subject != uid || claims.Role != "user" || claims.Kind != KindAccess {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := s.Verify(pair.AccessToken, KindRefresh); err != ErrWrongKind {
		t.Fatalf("expected ErrWrongKind, got %v", err)
	}

	rclaims, err := s.Verify(pair.RefreshToken, KindRefresh)
	if err != nil {
		t.Fatalf("Verify(refresh): %v", err)
	}
	if rclaims.Subject != uid {
		t.Fatalf("refresh subject mismatch: %v != %v", rclaims.Subject, uid)
	}
}

func TestVerify_Expired(t *testing.T) {
	s := NewSigner("test-secret", -1*time.Second, 7*24*time.Hour)
	uid := uuid.New()

	pair, err := s.IssuePair(uid, "user")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	if _, err := s.Verify(pair.AccessToken, KindAccess); err != ErrExpired {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestVerify_TamperedSignature(t *testing.T) {
	s := NewSigner("test-secret", 30*time.Minute, 7*24*time.Hour)
	other := NewSigner("different-secret", 30*time.Minute, 7*24*time.Hour)
	uid := uuid.New()

	pair, err := other.IssuePair(uid, "user")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	if _, err := s.Verify(pair.AccessToken, KindAccess); err == nil {
		t.Fatal("expected verification failure for token signed with a different secret")
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct-horse-battery", 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !VerifyPassword(hash, "correct-horse-battery") {
		t.Fatal("expected password to verify")
	}
	if VerifyPassword(hash, "wrong-password") {
		t.Fatal("expected mismatched password to fail verification")
	}
}
