package auth

import (
	"testing"
	"time"
)

const secret = "test-secret"

func TestTokenRoundTrip(t *testing.T) {
	tok, err := MakeToken(42, secret, 15*time.Minute)
	if err != nil {
		t.Fatalf("make token: %v", err)
	}

	claims, err := ParseToken(tok, secret)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID() != 42 {
		t.Errorf("uid mismatch: %d", claims.UserID())
	}

	// verify expiry is ~15 min from now
	diff := time.Until(claims.Expiry())
	if diff < 14*time.Minute || diff > 16*time.Minute {
		t.Errorf("expected ~15min expiry, got %v", diff)
	}
}

func TestAlgorithmConfusion(t *testing.T) {
	tok, _ := MakeToken(1, secret, time.Hour)

	if _, err := ParseToken(tok, "wrong-secret"); err == nil {
		t.Fatal("expected error for wrong secret")
	}
	if _, err := ParseToken("not.a.token", secret); err == nil {
		t.Fatal("expected error for garbage token")
	}
}

func TestPeek(t *testing.T) {
	tok, _ := MakeToken(7, secret, -time.Minute)

	// signature and expiry are not checked
	c, err := Peek(tok)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if c.UserID() != 7 {
		t.Errorf("uid: got %d", c.UserID())
	}
	if !c.Expired(time.Now()) {
		t.Error("expected token to read as expired")
	}

	if _, err := Peek("garbage"); err == nil {
		t.Fatal("expected error for garbage token")
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("testpass123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(hash, "testpass123") {
		t.Error("password should match")
	}
	if CheckPassword(hash, "wrongpassword") {
		t.Error("wrong password should not match")
	}
}
