// resource.go - memlist.bin entry records: one 20-byte record per resource,
// describing where it lives in a bank file and where it lands in the data
// arena once loaded.

package main

import "encoding/binary"

// ResourceStatus tracks an entry's lifecycle within the arena.
type ResourceStatus uint8

const (
	StatusEmpty   ResourceStatus = 0
	StatusReady   ResourceStatus = 1
	StatusPending ResourceStatus = 2
)

// ResourceKind distinguishes the handful of entry kinds the pager treats
// specially; everything above KindBitmap is opaque payload to the pager.
type ResourceKind uint8

const (
	KindSound  ResourceKind = 0
	KindMusic  ResourceKind = 1
	KindBitmap ResourceKind = 2
)

const entryRecordSize = 20

// ResourceEntry mirrors one memlist.bin record.
type ResourceEntry struct {
	Status       ResourceStatus
	Kind         ResourceKind
	Address      int
	RankNum      uint8
	BankNum      uint8
	BankPos      uint32
	PackedSize   int
	UnpackedSize int
}

// parseEntryRecord decodes one 20-byte memlist record. Returns ok=false on
// the 0xFF status byte that terminates the table.
func parseEntryRecord(buf [entryRecordSize]byte) (ResourceEntry, bool) {
	if buf[0] == 0xFF {
		return ResourceEntry{}, false
	}
	return ResourceEntry{
		Status:       ResourceStatus(buf[0]),
		Kind:         ResourceKind(buf[1]),
		Address:      int(binary.BigEndian.Uint32(buf[2:6])),
		RankNum:      buf[6],
		BankNum:      buf[7],
		BankPos:      binary.BigEndian.Uint32(buf[8:12]),
		PackedSize:   int(binary.BigEndian.Uint32(buf[12:16])),
		UnpackedSize: int(binary.BigEndian.Uint32(buf[16:20])),
	}, true
}

// ReadEntries parses a full memlist.bin image (already read into memory)
// into its table of resource entries, stopping at the 0xFF status sentinel.
func ReadEntries(data []byte) ([]ResourceEntry, error) {
	var entries []ResourceEntry
	for off := 0; off+entryRecordSize <= len(data); off += entryRecordSize {
		var rec [entryRecordSize]byte
		copy(rec[:], data[off:off+entryRecordSize])
		entry, ok := parseEntryRecord(rec)
		if !ok {
			return entries, nil
		}
		entries = append(entries, entry)
	}
	return nil, &CorruptError{Reason: "memlist.bin: missing 0xFF terminator"}
}
