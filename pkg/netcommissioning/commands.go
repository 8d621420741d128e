package netcommissioning

// CommandID identifies a commissioning command on the wire.
type CommandID uint8

const (
	CmdAddOrUpdateWiFiNetwork   CommandID = 0x02
	CmdAddOrUpdateThreadNetwork CommandID = 0x03
	CmdRemoveNetwork            CommandID = 0x04
	CmdConnectNetwork           CommandID = 0x06
)

// String returns the command name.
func (c CommandID) String() string {
	switch c {
	case CmdAddOrUpdateWiFiNetwork:
		return "AddOrUpdateWiFiNetwork"
	case CmdAddOrUpdateThreadNetwork:
		return "AddOrUpdateThreadNetwork"
	case CmdRemoveNetwork:
		return "RemoveNetwork"
	case CmdConnectNetwork:
		return "ConnectNetwork"
	default:
		return "UNKNOWN"
	}
}

// IsValid returns true if the engine handles this command.
func (c CommandID) IsValid() bool {
	switch c {
	case CmdAddOrUpdateWiFiNetwork, CmdAddOrUpdateThreadNetwork, CmdRemoveNetwork, CmdConnectNetwork:
		return true
	default:
		return false
	}
}

// IsSensitive returns true if the command must run inside a timed window.
// Every commissioning mutation is sensitive.
func (c CommandID) IsSensitive() bool {
	return c.IsValid()
}

// AddOrUpdateWiFiNetworkRequest carries a Wi-Fi profile.
type AddOrUpdateWiFiNetworkRequest struct {
	SSID        []byte `cbor:"1,keyasint"`
	Credentials []byte `cbor:"2,keyasint"`
	Breadcrumb  uint64 `cbor:"3,keyasint,omitempty"`
	TimeoutMs   uint32 `cbor:"4,keyasint,omitempty"`
}

// AddOrUpdateThreadNetworkRequest carries a Thread operational dataset.
type AddOrUpdateThreadNetworkRequest struct {
	OperationalDataset []byte `cbor:"1,keyasint"`
	Breadcrumb         uint64 `cbor:"2,keyasint,omitempty"`
	TimeoutMs          uint32 `cbor:"3,keyasint,omitempty"`
}

// RemoveNetworkRequest names the profile to remove.
type RemoveNetworkRequest struct {
	NetworkID  []byte `cbor:"1,keyasint"`
	Breadcrumb uint64 `cbor:"2,keyasint,omitempty"`
	TimeoutMs  uint32 `cbor:"3,keyasint,omitempty"`
}

// ConnectNetworkRequest names the profile to connect.
type ConnectNetworkRequest struct {
	NetworkID  []byte `cbor:"1,keyasint"`
	Breadcrumb uint64 `cbor:"2,keyasint,omitempty"`
	TimeoutMs  uint32 `cbor:"3,keyasint,omitempty"`
}
