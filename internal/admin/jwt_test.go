package admin

import (
	"errors"
	"testing"
	"time"
)

func TestTokenMaker_RoundTrip(t *testing.T) {
	tm := NewTokenMaker("0123456789abcdef0123456789abcdef", time.Hour)

	tok, err := tm.New(1, "admin@foodmart.com")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	c, err := tm.Parse(tok)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.AdminID != 1 || c.Email != "admin@foodmart.com" {
		t.Fatalf("claims=%+v", c)
	}
	if c.Subject != "1" {
		t.Fatalf("subject=%q", c.Subject)
	}
}

func TestTokenMaker_Rejects(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	tm := NewTokenMaker("0123456789abcdef0123456789abcdef", time.Minute)
	tm.now = func() time.Time { return base }

	tok, err := tm.New(7, "ops@foodmart.com")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	other := NewTokenMaker("ffffffffffffffffffffffffffffffff", time.Minute)
	other.now = tm.now
	if _, err := other.Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("foreign secret err=%v", err)
	}

	if _, err := tm.Parse(tok + "x"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("tampered err=%v", err)
	}

	tm.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := tm.Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired err=%v", err)
	}
}
