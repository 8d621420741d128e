package discovery

import (
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeOperationalTXT creates TXT records for operational discovery.
func EncodeOperationalTXT(info *OperationalInfo) TXTRecordMap {
	txt := make(TXTRecordMap)

	txt[TXTKeyDeviceID] = info.DeviceID
	txt[TXTKeyNetworkType] = info.NetworkType
	txt[TXTKeyNetworkID] = info.NetworkID

	if info.Firmware != "" {
		txt[TXTKeyFirmware] = info.Firmware
	}
	if info.VendorProduct != "" {
		txt[TXTKeyVendorProd] = info.VendorProduct
	}
	return txt
}

// DecodeOperationalTXT parses TXT records from operational discovery.
func DecodeOperationalTXT(txt TXTRecordMap) (*OperationalInfo, error) {
	info := &OperationalInfo{}

	var ok bool
	info.DeviceID, ok = txt[TXTKeyDeviceID]
	if !ok || info.DeviceID == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyDeviceID)
	}

	info.NetworkType, ok = txt[TXTKeyNetworkType]
	if !ok || info.NetworkType == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyNetworkType)
	}

	info.NetworkID, ok = txt[TXTKeyNetworkID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyNetworkID)
	}
	if _, err := hex.DecodeString(info.NetworkID); err != nil {
		return nil, fmt.Errorf("%w: invalid network ID format", ErrInvalidTXTRecord)
	}

	info.Firmware = txt[TXTKeyFirmware]
	info.VendorProduct = txt[TXTKeyVendorProd]
	return info, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to sorted "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, k+"="+v)
	}
	slices.Sort(result)
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		k, v, found := strings.Cut(s, "=")
		if found {
			txt[k] = v
		} else if k != "" {
			// Key without value (boolean flag)
			txt[k] = ""
		}
	}
	return txt
}

// ValidateTXT checks the encoded size of txt. Each string costs one length
// byte on the wire.
func ValidateTXT(strs []string) error {
	size := 0
	for _, s := range strs {
		size += 1 + len(s)
	}
	if size > MaxTXTRecordSize {
		return fmt.Errorf("%w: %d > %d", ErrTXTTooLarge, size, MaxTXTRecordSize)
	}
	return nil
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInstanceNameTooLong)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}
