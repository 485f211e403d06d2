package domain

import (
	"encoding/base64"
	"strings"
)

// CustomWhispPrefix marks a whisp typed by the storyteller instead of drawn
// from the element pool. The prefix is stripped before guess comparison.
const CustomWhispPrefix = "custom:"

// ObfuscateWhisp encodes a whisp for clients that must not read it in
// transit. This is a display encoding, not a security measure: any client
// can reverse it, but it keeps the secret out of casual view in dev tools
// and logs.
func ObfuscateWhisp(whisp string) string {
	return base64.StdEncoding.EncodeToString([]byte(whisp))
}

// RevealWhisp reverses ObfuscateWhisp.
func RevealWhisp(encoded string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// NormalizeGuess canonicalizes guess text for comparison: surrounding
// whitespace is trimmed, runs of internal whitespace collapse to one space,
// and the result is lowercased.
func NormalizeGuess(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// WhispAnswer returns the comparable answer for a stored whisp, stripping
// the custom prefix when present.
func WhispAnswer(whisp string) string {
	trimmed := strings.TrimSpace(whisp)
	if rest, ok := strings.CutPrefix(trimmed, CustomWhispPrefix); ok {
		return NormalizeGuess(rest)
	}
	return NormalizeGuess(trimmed)
}

// GuessMatches reports whether guess text names the stored whisp.
func GuessMatches(whisp, guess string) bool {
	answer := WhispAnswer(whisp)
	if answer == "" {
		return false
	}
	return NormalizeGuess(guess) == answer
}
