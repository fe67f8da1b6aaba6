package payload

import (
	"encoding/json"
	"testing"
)

func TestOTPValueAcceptsStringsAndNumbers(t *testing.T) {
	tests := []struct {
		in      string
		want    OTPValue
		wantErr bool
	}{
		{in: `{"otp":"012345"}`, want: "012345"},
		{in: `{"otp":12345}`, want: "12345"},
		{in: `{"otp":1.5}`, wantErr: true},
		{in: `{"otp":true}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var req VerifyOTPRequest
			err := json.Unmarshal([]byte(tt.in), &req)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", req.OTP)
				}
				return
			}
			if err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if req.OTP != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, req.OTP)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	for _, in := range []string{"1990-12-10", "1990-12-10T00:00:00Z"} {
		got, err := ParseDate(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got.Format(DateLayout) != "1990-12-10" {
			t.Fatalf("unexpected date %v", got)
		}
	}
	if _, err := ParseDate("10/12/1990"); err == nil {
		t.Fatal("expected error for unsupported layout")
	}
}
