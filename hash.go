package gotlm

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashText computes the SHA-256 hash of the trimmed text.
func HashText(text string) string {
	trimmed := strings.TrimSpace(text)
	hash := sha256.Sum256([]byte(trimmed))
	return hex.EncodeToString(hash[:])
}

// HashContent computes the SHA-256 hash of the given parts, untrimmed.
// Parts are separated by a NUL byte so ("ab", "c") and ("a", "bc") differ.
func HashContent(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CacheKeyExtended generates an extended cache key including source locale and model.
// Use this when you need to differentiate translations by source locale or MT model.
func CacheKeyExtended(hash, sourceLocale, targetLocale, model string) string {
	return hash + ":" + sourceLocale + ":" + targetLocale + ":" + model
}

// TranslationKey builds the lookup cache key of a string translation:
// the string hash, the context it appears in and the target locale.
func TranslationKey(stringHash, contextPath, locale string) string {
	return "st:" + stringHash + ":" + HashContent(contextPath) + ":" + locale
}
