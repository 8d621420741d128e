// Package persistence keeps the network profile table across restarts.
//
// Two backends are provided: FileStore writes a single JSON state file and
// BoltStore keeps one bbolt key per slot. Both store netcommissioning.Record
// values with Wi-Fi credentials and Thread datasets sealed by a Sealer, so
// secrets never reach disk in clear text.
package persistence
