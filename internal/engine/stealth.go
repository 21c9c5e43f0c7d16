package engine

import stealth "github.com/anatolykoptev/go-stealth"

// Re-export stealth helpers for engine consumers.
func ChromeHeaders() map[string]string { return stealth.ChromeHeaders() }
func RandomUserAgent() string          { return stealth.RandomUserAgent() }
func IsRetryableStatus(code int) bool  { return stealth.IsRetryableStatus(code) }
