// Package protect scrambles script payloads so they are not served as
// plain, copy-paste ready text.
package protect

import (
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrMalformed reports a payload that is not a reversed base64 string.
var ErrMalformed = errors.New("malformed protected payload")

// Obfuscate base64-encodes code and reverses the result.
func Obfuscate(code string) string {
	return reverse(base64.StdEncoding.EncodeToString([]byte(code)))
}

// Reveal inverts Obfuscate.
func Reveal(payload string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(reverse(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return string(raw), nil
}

// reverse reverses s byte-wise; base64 output is pure ASCII.
func reverse(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
