package netcommissioning

import (
	"fmt"
	"strings"
)

// NetworkType is the kind of network a profile describes.
type NetworkType uint8

const (
	// NetworkTypeUndefined marks an empty slot.
	NetworkTypeUndefined NetworkType = 0
	NetworkTypeWiFi      NetworkType = 1
	NetworkTypeThread    NetworkType = 2
	NetworkTypeEthernet  NetworkType = 3
)

// String returns the network type name.
func (t NetworkType) String() string {
	switch t {
	case NetworkTypeUndefined:
		return "UNDEFINED"
	case NetworkTypeWiFi:
		return "WIFI"
	case NetworkTypeThread:
		return "THREAD"
	case NetworkTypeEthernet:
		return "ETHERNET"
	default:
		return "UNKNOWN"
	}
}

// FeatureSet selects which network types a device supports.
type FeatureSet uint8

const (
	FeatureWiFi FeatureSet = 1 << iota
	FeatureThread
	FeatureEthernet

	// AllFeatures enables every network type.
	AllFeatures = FeatureWiFi | FeatureThread | FeatureEthernet
)

// Supports reports whether profiles of type t may be constructed.
// NetworkTypeUndefined is never supported.
func (f FeatureSet) Supports(t NetworkType) bool {
	switch t {
	case NetworkTypeWiFi:
		return f&FeatureWiFi != 0
	case NetworkTypeThread:
		return f&FeatureThread != 0
	case NetworkTypeEthernet:
		return f&FeatureEthernet != 0
	default:
		return false
	}
}

// String returns the enabled features as a comma separated list.
func (f FeatureSet) String() string {
	var names []string
	if f&FeatureWiFi != 0 {
		names = append(names, "wifi")
	}
	if f&FeatureThread != 0 {
		names = append(names, "thread")
	}
	if f&FeatureEthernet != 0 {
		names = append(names, "ethernet")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}

// ParseFeatureSet builds a FeatureSet from names such as "wifi" or "thread".
func ParseFeatureSet(names []string) (FeatureSet, error) {
	var f FeatureSet
	for _, n := range names {
		switch strings.ToLower(strings.TrimSpace(n)) {
		case "wifi", "wi-fi":
			f |= FeatureWiFi
		case "thread":
			f |= FeatureThread
		case "ethernet":
			f |= FeatureEthernet
		default:
			return 0, fmt.Errorf("unknown network feature %q", n)
		}
	}
	return f, nil
}

// Payload is the type-specific content of a profile. The set of
// implementations is closed.
type Payload interface {
	NetworkType() NetworkType
	wipe()
	clone() Payload
}

// WiFiPayload holds Wi-Fi association parameters.
type WiFiPayload struct {
	SSID        SSID
	Credentials Credentials
}

func (WiFiPayload) NetworkType() NetworkType { return NetworkTypeWiFi }

func (p WiFiPayload) wipe() {
	wipe(p.SSID.b)
	wipe(p.Credentials.b)
}

func (p WiFiPayload) clone() Payload {
	return WiFiPayload{SSID: SSID{p.SSID.Bytes()}, Credentials: Credentials{p.Credentials.Bytes()}}
}

// ThreadPayload holds a Thread operational dataset.
type ThreadPayload struct {
	Dataset Dataset
}

func (ThreadPayload) NetworkType() NetworkType { return NetworkTypeThread }

func (p ThreadPayload) wipe() { wipe(p.Dataset.b) }

func (p ThreadPayload) clone() Payload {
	return ThreadPayload{Dataset: Dataset{p.Dataset.Bytes()}}
}

// EthernetPayload is empty; Ethernet needs no credentials.
type EthernetPayload struct{}

func (EthernetPayload) NetworkType() NetworkType { return NetworkTypeEthernet }

func (EthernetPayload) wipe() {}

func (EthernetPayload) clone() Payload { return EthernetPayload{} }

// Profile is one stored network.
type Profile struct {
	NetworkID NetworkID
	Type      NetworkType
	Enabled   bool
	Payload   Payload
}

func (p Profile) clone() Profile {
	c := p
	c.NetworkID = NetworkID{p.NetworkID.Bytes()}
	if p.Payload != nil {
		c.Payload = p.Payload.clone()
	}
	return c
}

// ProfileInfo describes an occupied slot without its secrets.
type ProfileInfo struct {
	Index     uint8
	NetworkID NetworkID
	Type      NetworkType
	Enabled   bool
}

// State returns the profile lifecycle state name.
func (i ProfileInfo) State() string {
	if i.Enabled {
		return "CONNECTED"
	}
	return "PROVISIONED"
}
