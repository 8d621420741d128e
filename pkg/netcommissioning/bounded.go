package netcommissioning

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"unicode/utf8"
)

// Declared maxima for stored byte fields.
const (
	MaxNetworkIDLength   = 32
	MaxSSIDLength        = 32
	MaxCredentialsLength = 64
	MaxDatasetLength     = 254
)

func bounded(b []byte, limit int, what string) ([]byte, error) {
	if len(b) > limit {
		return nil, fmt.Errorf("%w: %s is %d bytes, max %d", ErrOutOfRange, what, len(b), limit)
	}
	return bytes.Clone(b), nil
}

// NetworkID identifies a stored profile: the SSID for Wi-Fi, the extended
// PAN ID for Thread.
type NetworkID struct{ b []byte }

// NewNetworkID copies b into a NetworkID, rejecting ids over MaxNetworkIDLength.
func NewNetworkID(b []byte) (NetworkID, error) {
	c, err := bounded(b, MaxNetworkIDLength, "network id")
	return NetworkID{c}, err
}

// Bytes returns a copy of the id.
func (n NetworkID) Bytes() []byte { return bytes.Clone(n.b) }

// Len returns the id length in bytes.
func (n NetworkID) Len() int { return len(n.b) }

// Equal reports an exact-length, exact-byte match.
func (n NetworkID) Equal(b []byte) bool { return bytes.Equal(n.b, b) }

// String renders printable ids as text and anything else as hex.
func (n NetworkID) String() string {
	if len(n.b) > 0 && utf8.Valid(n.b) && isPrintable(n.b) {
		return string(n.b)
	}
	return hex.EncodeToString(n.b)
}

func isPrintable(b []byte) bool {
	for _, c := range b {
		if c < 0x20 || c == 0x7f {
			return false
		}
	}
	return true
}

// SSID is a Wi-Fi network name of at most MaxSSIDLength bytes.
type SSID struct{ b []byte }

// NewSSID copies b into an SSID.
func NewSSID(b []byte) (SSID, error) {
	c, err := bounded(b, MaxSSIDLength, "ssid")
	return SSID{c}, err
}

// Bytes returns a copy of the SSID.
func (s SSID) Bytes() []byte { return bytes.Clone(s.b) }

// Len returns the SSID length in bytes.
func (s SSID) Len() int { return len(s.b) }

// Credentials is a Wi-Fi passphrase or PSK of at most MaxCredentialsLength bytes.
type Credentials struct{ b []byte }

// NewCredentials copies b into Credentials.
func NewCredentials(b []byte) (Credentials, error) {
	c, err := bounded(b, MaxCredentialsLength, "credentials")
	return Credentials{c}, err
}

// Bytes returns a copy of the credentials.
func (c Credentials) Bytes() []byte { return bytes.Clone(c.b) }

// Len returns the credentials length in bytes.
func (c Credentials) Len() int { return len(c.b) }

// String never reveals the secret.
func (c Credentials) String() string { return "[REDACTED]" }

// Dataset is a raw Thread operational dataset of at most MaxDatasetLength bytes.
type Dataset struct{ b []byte }

// NewDataset copies b into a Dataset.
func NewDataset(b []byte) (Dataset, error) {
	c, err := bounded(b, MaxDatasetLength, "operational dataset")
	return Dataset{c}, err
}

// Bytes returns a copy of the dataset.
func (d Dataset) Bytes() []byte { return bytes.Clone(d.b) }

// Len returns the dataset length in bytes.
func (d Dataset) Len() int { return len(d.b) }

// String never reveals the dataset, which carries the network key.
func (d Dataset) String() string { return "[REDACTED]" }

func wipe(b []byte) {
	clear(b)
}
