// internal/signing/signing.go
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// excludedFields are never part of the canonical string. Signing the
// signature itself, or the secret, would create a signing loop.
var excludedFields = map[string]bool{
	"signature": true,
	"apiSecret": true,
}

// Canonicalize builds the canonical string from sorted field names,
// skipping secret-bearing fields, as "k=v" pairs joined by "&".
func Canonicalize(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if excludedFields[k] {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+fields[k])
	}
	return strings.Join(pairs, "&")
}

// CanonicalizeJSON flattens a JSON object's top-level scalar fields into
// the canonical string. json.Number keeps numeric representations stable.
func CanonicalizeJSON(payload []byte) (string, error) {
	dec := json.NewDecoder(strings.NewReader(string(payload)))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return "", fmt.Errorf("malformed callback payload: %w", err)
	}

	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			fields[k] = val
		case json.Number:
			fields[k] = val.String()
		case bool:
			fields[k] = fmt.Sprintf("%t", val)
		case nil:
			// omitted from the canonical string
		default:
			// nested objects and arrays are not signed
		}
	}
	return Canonicalize(fields), nil
}

// Signer produces HMAC-SHA256 signatures over canonical strings using a
// per-rail shared secret supplied externally. The core never generates
// or stores this secret.
type Signer struct {
	secret []byte
}

func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret}
}

// Sign returns the hex-encoded HMAC-SHA256 of the canonical form of fields.
func (s *Signer) Sign(fields map[string]string) string {
	return s.SignString(Canonicalize(fields))
}

func (s *Signer) SignString(canonical string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verifier checks inbound callback signatures. A verification failure
// maps the callback to "ignored", never to a status transition.
type Verifier struct {
	secrets map[string][]byte
}

func NewVerifier(secrets map[string][]byte) *Verifier {
	return &Verifier{secrets: secrets}
}

// Verify recomputes the expected signature over the payload's canonical
// form and compares in constant time.
func (v *Verifier) Verify(provider, signature string, payload []byte) bool {
	secret, ok := v.secrets[provider]
	if !ok {
		return false
	}

	canonical, err := CanonicalizeJSON(payload)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(canonical))
	expected := mac.Sum(nil)

	provided, err := hex.DecodeString(signature)
	if err != nil || len(provided) != len(expected) {
		return false
	}
	return subtle.ConstantTimeCompare(expected, provided) == 1
}
