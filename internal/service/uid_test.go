package service

import (
	"strings"
	"testing"
)

func TestUIDRoundTrip(t *testing.T) {
	uid := EncodeUID("user@example.com")
	if uid == "" || strings.Contains(uid, "@") {
		t.Fatalf("expected opaque uid, got %q", uid)
	}
	email, err := DecodeUID(uid)
	if err != nil {
		t.Fatalf("expected decode to succeed, got %v", err)
	}
	if email != "user@example.com" {
		t.Fatalf("expected round trip, got %q", email)
	}
}

func TestDecodeUIDRejectsGarbage(t *testing.T) {
	if _, err := DecodeUID("!!!not-base64!!!"); err == nil {
		t.Fatalf("expected decode error for invalid input")
	}
}

func TestNewUserID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := newUserID()
		if err != nil {
			t.Fatalf("expected id generation to succeed, got %v", err)
		}
		if len(id) != userIDLength {
			t.Fatalf("expected %d chars, got %q", userIDLength, id)
		}
		for _, r := range id {
			if !strings.ContainsRune(uidAlphabet, r) {
				t.Fatalf("unexpected character %q in id %q", r, id)
			}
		}
		if seen[id] {
			t.Fatalf("unexpected duplicate id %q", id)
		}
		seen[id] = true
	}
}
