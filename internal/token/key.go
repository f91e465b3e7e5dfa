package token

// DeriveKey turns the configured secret into HMAC key bytes.
//
// Secrets of at least MinKeyBytes UTF-8 bytes are used unchanged. Shorter
// secrets are copied into a zero-filled MinKeyBytes buffer; the number of
// bytes copied is the secret's length in UTF-16 code units, so secrets with
// multi-byte characters are truncated. Tokens issued by earlier deployments
// with the same secret keep verifying.
func DeriveKey(secret string) []byte {
	raw := []byte(secret)
	if len(raw) >= MinKeyBytes {
		return raw
	}
	key := make([]byte, MinKeyBytes)
	n := min(utf16Len(secret), MinKeyBytes)
	copy(key, raw[:min(n, len(raw))])
	return key
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
			continue
		}
		n++
	}
	return n
}
