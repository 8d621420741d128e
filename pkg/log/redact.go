package log

import (
	"log/slog"
	"strings"
)

const redactedValue = "[REDACTED]"

// Redactor masks secret-bearing attributes in operational slog output.
type Redactor struct {
	sensitiveKeys map[string]bool
}

// NewRedactor creates a Redactor with the default commissioning secrets.
func NewRedactor() *Redactor {
	return &Redactor{
		sensitiveKeys: map[string]bool{
			// Wi-Fi
			"credentials": true,
			"passphrase":  true,
			"psk":         true,
			"password":    true,

			// Thread
			"dataset":             true,
			"operational_dataset": true,
			"network_key":         true,
			"pskc":                true,

			// Storage and transport
			"sealing_key": true,
			"secret":      true,
			"token":       true,
			"payload":     true,
		},
	}
}

// AddSensitiveKey adds a custom key to the redaction list.
func (r *Redactor) AddSensitiveKey(key string) {
	r.sensitiveKeys[strings.ToLower(key)] = true
}

// RemoveSensitiveKey removes a key from the redaction list.
func (r *Redactor) RemoveSensitiveKey(key string) {
	delete(r.sensitiveKeys, strings.ToLower(key))
}

// IsSensitive reports whether values logged under key are masked.
func (r *Redactor) IsSensitive(key string) bool {
	return r.sensitiveKeys[strings.ToLower(key)]
}

// ReplaceAttr is suitable for slog.HandlerOptions.ReplaceAttr.
func (r *Redactor) ReplaceAttr(_ []string, a slog.Attr) slog.Attr {
	if r.IsSensitive(a.Key) {
		return slog.String(a.Key, redactedValue)
	}
	return a
}
