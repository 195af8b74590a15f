// pak.go - reader for the optional ".pak" bundle, an alternate on-disk
// distribution of the game's resources used by some DOS releases instead
// of the bare memlist.bin + bankNN layout. Entry lookup and the TooDC
// obfuscation layer are implemented; the on-disk index table format itself
// was never pinned down upstream either, so OpenPackage takes a pre-parsed
// entry table rather than guessing at a byte layout with no grounding.

package main

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
)

// PakEntry describes one bundled resource's location within the pak file.
type PakEntry struct {
	Name   string
	Offset uint32
	Size   uint32
}

// Package is an opened .pak bundle.
type Package struct {
	file    *os.File
	entries []PakEntry
}

// OpenPackage opens path and wraps it with the given pre-parsed entry
// table.
func OpenPackage(path string, entries []PakEntry) (*Package, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	return &Package{file: f, entries: entries}, nil
}

func (pk *Package) Close() error { return pk.file.Close() }

// Find looks up an entry by name, case-insensitively.
func (pk *Package) Find(name string) (PakEntry, bool) {
	for _, e := range pk.entries {
		if len(e.Name) == len(name) && bytes.EqualFold([]byte(e.Name), []byte(name)) {
			return e, true
		}
	}
	return PakEntry{}, false
}

// pakXorKey2 matches the TooDC obfuscation scheme's initial key bit for
// bit.
const pakXorKey2 uint32 = 0x22683297

// Load reads and, if TooDC-tagged, decodes entry's bytes.
func (pk *Package) Load(entry PakEntry) ([]byte, error) {
	if _, err := pk.file.Seek(int64(entry.Offset), io.SeekStart); err != nil {
		return nil, &IOError{Path: entry.Name, Err: err}
	}
	data := make([]byte, entry.Size)
	if _, err := io.ReadFull(pk.file, data); err != nil {
		return nil, &IOError{Path: entry.Name, Err: err}
	}

	if len(data) >= 6 && string(data[:5]) == "TooDC" {
		body := data[6:]
		if err := decodeTooDC(body); err != nil {
			return nil, err
		}
		data = data[10:]
	}

	return data, nil
}

// decodeTooDC undoes the rolling-XOR cipher applied to TooDC-tagged
// payloads: each 32-bit little-endian word is XORed with a key that itself
// advances by a per-word remainder plus a fixed accumulator step.
func decodeTooDC(data []byte) error {
	if len(data)%4 != 0 {
		return &CorruptError{Reason: "pak: invalid TooDC payload length"}
	}

	key := pakXorKey2
	var acc uint32
	for off := 0; off+4 <= len(data); off += 4 {
		q := data[off : off+4]
		word := binary.LittleEndian.Uint32(q) ^ key
		r := (uint32(q[2]) + uint32(q[1]) + uint32(q[0])) ^ uint32(q[3])
		key += r + acc
		acc += 0x4D
		binary.LittleEndian.PutUint32(q, word)
	}
	return nil
}
