package netcommissioning

import (
	"encoding/binary"
	"fmt"
)

// ExtendedPANIDLength is the size of a Thread extended PAN ID.
const ExtendedPANIDLength = 8

// MeshCoP TLV types found in an operational dataset.
const (
	TLVChannel         uint8 = 0
	TLVPANID           uint8 = 1
	TLVExtendedPANID   uint8 = 2
	TLVNetworkName     uint8 = 3
	TLVPSKc            uint8 = 4
	TLVNetworkKey      uint8 = 5
	TLVMeshLocalPrefix uint8 = 7
	TLVSecurityPolicy  uint8 = 12
	TLVActiveTimestamp uint8 = 14
	TLVChannelMask     uint8 = 53
)

// OperationalDataset is a parsed Thread operational dataset. It keeps the
// raw bytes so the dataset can be applied to the radio unchanged.
type OperationalDataset struct {
	raw  []byte
	tlvs map[uint8][]byte
}

// ParseOperationalDataset validates data as a sequence of MeshCoP TLVs.
// Oversize input yields ErrOutOfRange; a malformed sequence yields
// ErrInvalidDataset.
func ParseOperationalDataset(data []byte) (*OperationalDataset, error) {
	if len(data) > MaxDatasetLength {
		return nil, fmt.Errorf("%w: operational dataset is %d bytes, max %d", ErrOutOfRange, len(data), MaxDatasetLength)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidDataset)
	}

	tlvs := make(map[uint8][]byte)
	for off := 0; off < len(data); {
		if len(data)-off < 2 {
			return nil, fmt.Errorf("%w: truncated tlv header at offset %d", ErrInvalidDataset, off)
		}
		typ, n := data[off], int(data[off+1])
		off += 2
		if len(data)-off < n {
			return nil, fmt.Errorf("%w: tlv %d overruns dataset", ErrInvalidDataset, typ)
		}
		if _, dup := tlvs[typ]; dup {
			return nil, fmt.Errorf("%w: duplicate tlv %d", ErrInvalidDataset, typ)
		}
		tlvs[typ] = data[off : off+n]
		off += n
	}

	if v, ok := tlvs[TLVExtendedPANID]; ok && len(v) != ExtendedPANIDLength {
		return nil, fmt.Errorf("%w: extended pan id is %d bytes", ErrInvalidDataset, len(v))
	}
	if v, ok := tlvs[TLVPANID]; ok && len(v) != 2 {
		return nil, fmt.Errorf("%w: pan id is %d bytes", ErrInvalidDataset, len(v))
	}
	if v, ok := tlvs[TLVNetworkName]; ok && len(v) > 16 {
		return nil, fmt.Errorf("%w: network name is %d bytes", ErrInvalidDataset, len(v))
	}

	return &OperationalDataset{raw: data, tlvs: tlvs}, nil
}

// ExtendedPANID returns the dataset's extended PAN ID.
func (d *OperationalDataset) ExtendedPANID() ([ExtendedPANIDLength]byte, error) {
	var id [ExtendedPANIDLength]byte
	v, ok := d.tlvs[TLVExtendedPANID]
	if !ok {
		return id, fmt.Errorf("%w: no extended pan id", ErrInvalidDataset)
	}
	copy(id[:], v)
	return id, nil
}

// NetworkName returns the network name TLV, if present.
func (d *OperationalDataset) NetworkName() (string, bool) {
	v, ok := d.tlvs[TLVNetworkName]
	return string(v), ok
}

// PANID returns the PAN ID TLV, if present.
func (d *OperationalDataset) PANID() (uint16, bool) {
	v, ok := d.tlvs[TLVPANID]
	if !ok {
		return 0, false
	}
	return binary.BigEndian.Uint16(v), true
}

// Channel returns the channel number, if present. The channel TLV carries a
// one-byte page followed by a two-byte channel.
func (d *OperationalDataset) Channel() (uint16, bool) {
	v, ok := d.tlvs[TLVChannel]
	if !ok || len(v) != 3 {
		return 0, false
	}
	return binary.BigEndian.Uint16(v[1:]), true
}

// Has reports whether the dataset contains a TLV of the given type.
func (d *OperationalDataset) Has(typ uint8) bool {
	_, ok := d.tlvs[typ]
	return ok
}

// Bytes returns the dataset as received.
func (d *OperationalDataset) Bytes() []byte {
	return append([]byte(nil), d.raw...)
}

// DatasetBuilder assembles an operational dataset TLV by TLV.
type DatasetBuilder struct {
	buf []byte
	err error
}

// Add appends a TLV. Values longer than 255 bytes are an error.
func (b *DatasetBuilder) Add(typ uint8, value []byte) *DatasetBuilder {
	if b.err != nil {
		return b
	}
	if len(value) > 0xff {
		b.err = fmt.Errorf("%w: tlv %d value is %d bytes", ErrOutOfRange, typ, len(value))
		return b
	}
	b.buf = append(b.buf, typ, byte(len(value)))
	b.buf = append(b.buf, value...)
	return b
}

// ExtendedPANID appends the extended PAN ID TLV.
func (b *DatasetBuilder) ExtendedPANID(id [ExtendedPANIDLength]byte) *DatasetBuilder {
	return b.Add(TLVExtendedPANID, id[:])
}

// NetworkName appends the network name TLV.
func (b *DatasetBuilder) NetworkName(name string) *DatasetBuilder {
	return b.Add(TLVNetworkName, []byte(name))
}

// PANID appends the PAN ID TLV.
func (b *DatasetBuilder) PANID(id uint16) *DatasetBuilder {
	return b.Add(TLVPANID, binary.BigEndian.AppendUint16(nil, id))
}

// Channel appends the channel TLV on page 0.
func (b *DatasetBuilder) Channel(ch uint16) *DatasetBuilder {
	return b.Add(TLVChannel, binary.BigEndian.AppendUint16([]byte{0}, ch))
}

// NetworkKey appends the network key TLV.
func (b *DatasetBuilder) NetworkKey(key [16]byte) *DatasetBuilder {
	return b.Add(TLVNetworkKey, key[:])
}

// Build returns the encoded dataset, validating it with ParseOperationalDataset.
func (b *DatasetBuilder) Build() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	if _, err := ParseOperationalDataset(b.buf); err != nil {
		return nil, err
	}
	return append([]byte(nil), b.buf...), nil
}
