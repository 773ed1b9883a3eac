package signing

import (
	"testing"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
		want   string
	}{
		{
			name:   "sorted by key",
			fields: map[string]string{"b": "2", "a": "1", "c": "3"},
			want:   "a=1&b=2&c=3",
		},
		{
			name:   "signature field excluded",
			fields: map[string]string{"amount": "100", "signature": "deadbeef"},
			want:   "amount=100",
		},
		{
			name:   "apiSecret field excluded",
			fields: map[string]string{"amount": "100", "apiSecret": "hunter2"},
			want:   "amount=100",
		},
		{
			name:   "empty",
			fields: map[string]string{},
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Canonicalize(tt.fields); got != tt.want {
				t.Errorf("Canonicalize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCanonicalizeJSON(t *testing.T) {
	payload := []byte(`{"transactionId":"tx-1","amount":50.10,"done":true,"signature":"abc","nested":{"x":1}}`)

	got, err := CanonicalizeJSON(payload)
	if err != nil {
		t.Fatalf("CanonicalizeJSON() error = %v", err)
	}

	want := "amount=50.10&done=true&transactionId=tx-1"
	if got != want {
		t.Errorf("CanonicalizeJSON() = %q, want %q", got, want)
	}
}

func TestCanonicalizeJSONMalformed(t *testing.T) {
	if _, err := CanonicalizeJSON([]byte("not json")); err == nil {
		t.Error("expected error for malformed payload")
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	secret := []byte("per-rail-shared-secret")
	signer := NewSigner(secret)
	verifier := NewVerifier(map[string][]byte{"MPESA": secret})

	payload := []byte(`{"transactionId":"tx-1","status":"SUCCESS","reference":"ref-9"}`)
	canonical, err := CanonicalizeJSON(payload)
	if err != nil {
		t.Fatal(err)
	}
	signature := signer.SignString(canonical)

	if !verifier.Verify("MPESA", signature, payload) {
		t.Error("valid signature rejected")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	payload := []byte(`{"transactionId":"tx-1","status":"SUCCESS"}`)

	canonical, err := CanonicalizeJSON(payload)
	if err != nil {
		t.Fatal(err)
	}
	forged := NewSigner([]byte("attacker-secret")).SignString(canonical)

	verifier := NewVerifier(map[string][]byte{"MPESA": []byte("real-secret")})
	if verifier.Verify("MPESA", forged, payload) {
		t.Error("signature computed with a different secret must be rejected")
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	secret := []byte("shared")
	canonical, _ := CanonicalizeJSON([]byte(`{"amount":"100"}`))
	signature := NewSigner(secret).SignString(canonical)

	verifier := NewVerifier(map[string][]byte{"BANK": secret})
	if verifier.Verify("BANK", signature, []byte(`{"amount":"999"}`)) {
		t.Error("tampered payload must be rejected")
	}
}

func TestVerifyUnknownProvider(t *testing.T) {
	verifier := NewVerifier(map[string][]byte{})
	if verifier.Verify("GHOST", "00", []byte(`{}`)) {
		t.Error("unknown provider must never verify")
	}
}

func TestVerifyRejectsNonHexSignature(t *testing.T) {
	verifier := NewVerifier(map[string][]byte{"BANK": []byte("s")})
	if verifier.Verify("BANK", "zzzz", []byte(`{"a":"1"}`)) {
		t.Error("non-hex signature must be rejected")
	}
}
