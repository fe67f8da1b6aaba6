package otp

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func testEngine(now *time.Time) *Engine {
	return NewEngine(Config{
		VerificationTTL:  30 * time.Minute,
		PasswordResetTTL: 10 * time.Minute,
	}, WithClock(func() time.Time { return *now }))
}

func TestIssueRangeAndExpiry(t *testing.T) {
	now := base
	e := testEngine(&now)

	tests := []struct {
		purpose Purpose
		ttl     time.Duration
	}{
		{PurposeVerification, 30 * time.Minute},
		{PurposePasswordReset, 10 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(string(tt.purpose), func(t *testing.T) {
			for range 200 {
				code, expiry, err := e.Issue(tt.purpose)
				if err != nil {
					t.Fatalf("issue: %v", err)
				}
				if code < 0 || code > MaxCode {
					t.Fatalf("code %d out of range", code)
				}
				if !expiry.Equal(base.Add(tt.ttl)) {
					t.Fatalf("expected expiry %v, got %v", base.Add(tt.ttl), expiry)
				}
			}
		})
	}
}

func TestIssueUsesRandomSource(t *testing.T) {
	now := base
	// All-zero bytes make rand.Int return 0.
	e := NewEngine(Config{VerificationTTL: time.Minute}, WithClock(func() time.Time { return now }),
		WithRandom(bytes.NewReader(make([]byte, 64))))

	code, _, err := e.Issue(PurposeVerification)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if code != 0 {
		t.Fatalf("expected code 0 from zero source, got %d", code)
	}
}

func TestIssueUnknownPurpose(t *testing.T) {
	now := base
	if _, _, err := testEngine(&now).Issue(Purpose("other")); err == nil {
		t.Fatal("expected error for unknown purpose")
	}
}

func TestVerifyOrder(t *testing.T) {
	now := base
	e := testEngine(&now)
	code := 424242
	expiry := base.Add(30 * time.Minute)

	tests := []struct {
		name     string
		at       time.Time
		stored   *int
		supplied string
		want     error
	}{
		{name: "match before expiry", at: base.Add(29 * time.Minute), stored: &code, supplied: "424242"},
		{name: "match after expiry", at: base.Add(31 * time.Minute), stored: &code, supplied: "424242", want: ErrExpired},
		{name: "mismatch before expiry", at: base, stored: &code, supplied: "111111", want: ErrMismatch},
		{name: "mismatch after expiry reports mismatch", at: base.Add(time.Hour), stored: &code, supplied: "111111", want: ErrMismatch},
		{name: "cleared code", at: base, stored: nil, supplied: "424242", want: ErrMismatch},
		{name: "non numeric", at: base, stored: &code, supplied: "42a242", want: ErrMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now = tt.at
			err := e.Verify(tt.stored, &expiry, tt.supplied)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestParseAndFormat(t *testing.T) {
	for in, want := range map[string]int{"012345": 12345, "0012345": 12345, "0000000": 0, "999999": 999999} {
		if got, err := Parse(in); err != nil || got != want {
			t.Fatalf("Parse(%q): expected %d, got %d err=%v", in, want, got, err)
		}
	}
	for _, bad := range []string{"", "1234567", "01234567", "-12345", "12 45"} {
		if _, err := Parse(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
	stored := 12345
	if !Matches(&stored, "0012345") {
		t.Fatal("extra leading zeros must still match")
	}
	if got := Format(42); got != "000042" {
		t.Fatalf("expected zero padded code, got %q", got)
	}
}
