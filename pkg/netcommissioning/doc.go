// Package netcommissioning implements the network commissioning engine of a
// device: a fixed-capacity table of Wi-Fi, Thread and Ethernet network
// profiles, the workflow that applies a stored profile to the platform
// network stack, and the command surface that ties both to a timed
// interaction window.
//
// # Profiles
//
// A Store holds at most N profiles (default 4). Slots are allocated
// first-fit; a slot is either empty (NetworkTypeUndefined) or carries a
// typed Payload:
//
//	NetworkTypeWiFi     -> WiFiPayload{SSID, Credentials}
//	NetworkTypeThread   -> ThreadPayload{Dataset}
//	NetworkTypeEthernet -> EthernetPayload{}
//
// Byte fields are held in bounded containers whose constructors reject
// oversize input, so a stored profile never exceeds its declared maxima.
// The network id is the SSID for Wi-Fi and the 8-byte extended PAN ID for
// Thread. Adds always consume a fresh slot; two adds of the same SSID yield
// two independent profiles with equal ids.
//
// # Commands
//
// Engine exposes AddOrUpdateWiFiNetwork, AddOrUpdateThreadNetwork,
// RemoveNetwork and ConnectNetwork. Every command is sensitive: it consumes
// the exchange's timed window through a WindowChecker and refuses to run
// when the window is missing or expired. Every command answers exactly once
// through its ResponseSink with a NetworkingStatus.
//
// # Platform
//
// Radio drivers are reached through WiFiProvisioner and ThreadStack. A nil
// capability in Platform means the build does not support that network
// type; connecting such a profile fails with ErrNotSupported rather than
// panicking or silently succeeding.
package netcommissioning
