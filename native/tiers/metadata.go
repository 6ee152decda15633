package tiers

import "encoding/binary"

// Pay metadata wire layout: a 32-byte reserved prefix owned by the host
// protocol, the 4-byte interface tag, one flag byte, then a big-endian uint16
// count followed by that many big-endian uint16 tier IDs. Anything that does
// not carry the tag at the fixed offset means "no explicit tier selection"
// and routes the payment through fallback selection.
const (
	payMetadataOffset = 32
	payMetadataTag    = uint32(0x7f1e7261)

	flagAllowOverspending = 0x01
)

// PayMetadata carries the payer's explicit minting instructions.
type PayMetadata struct {
	AllowOverspending bool
	TierIDs           []uint16
}

// DecodePayMetadata parses the pay-time metadata bytes. The second return
// reports whether a valid interface tag was present; callers treat absence as
// a request for fallback tier selection, not as an error.
func DecodePayMetadata(raw []byte) (PayMetadata, bool) {
	const header = payMetadataOffset + 4 + 1 + 2
	if len(raw) < header {
		return PayMetadata{}, false
	}
	if binary.BigEndian.Uint32(raw[payMetadataOffset:]) != payMetadataTag {
		return PayMetadata{}, false
	}
	meta := PayMetadata{AllowOverspending: raw[payMetadataOffset+4]&flagAllowOverspending != 0}
	count := int(binary.BigEndian.Uint16(raw[payMetadataOffset+5:]))
	if len(raw) < header+count*2 {
		return PayMetadata{}, false
	}
	meta.TierIDs = make([]uint16, count)
	for i := 0; i < count; i++ {
		meta.TierIDs[i] = binary.BigEndian.Uint16(raw[header+i*2:])
	}
	return meta, true
}

// EncodePayMetadata renders minting instructions in the pay metadata layout.
func EncodePayMetadata(meta PayMetadata) []byte {
	buf := make([]byte, payMetadataOffset+4+1+2+len(meta.TierIDs)*2)
	binary.BigEndian.PutUint32(buf[payMetadataOffset:], payMetadataTag)
	if meta.AllowOverspending {
		buf[payMetadataOffset+4] = flagAllowOverspending
	}
	binary.BigEndian.PutUint16(buf[payMetadataOffset+5:], uint16(len(meta.TierIDs)))
	for i, id := range meta.TierIDs {
		binary.BigEndian.PutUint16(buf[payMetadataOffset+7+i*2:], id)
	}
	return buf
}
