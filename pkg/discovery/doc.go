// Package discovery advertises and finds operational devices over
// mDNS/DNS-SD.
//
// # Operational Discovery (_netcomm._tcp)
//
// Once a device has joined an operational network it advertises one
// _netcomm._tcp instance named after its device id. TXT records include:
// DI (device id), NT (network type), NI (network id, hex) and optionally
// FW (firmware) and VP (vendor:product).
//
// OperationalAdvertiser implements netcommissioning.OperationalNotifier, so
// the advertisement follows the network chosen by ConnectNetwork. Browser
// is the controller side.
package discovery
