// pager.go - the resource pager: owns the fixed 1MiB data arena, decides
// which bank entries are loaded for the currently-running part, and
// services on-demand loads the VM issues mid-scene.

package main

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	dataSize      = 1 * 1024 * 1024
	dataBmpOffset = dataSize - 0x800*16
)

// partEntries lists the (palette, code, video1, video2) entry indices that
// make up each of the ten selectable parts, indexed by partID-16000. A zero
// entry index means "not present for this part".
var partEntries = [10][4]uint8{
	{0x14, 0x15, 0x16, 0x00}, // 16000 - protection screens
	{0x17, 0x18, 0x19, 0x00}, // 16001 - introduction
	{0x1A, 0x1B, 0x1C, 0x11}, // 16002 - water
	{0x1D, 0x1E, 0x1F, 0x11}, // 16003 - jail
	{0x20, 0x21, 0x22, 0x11}, // 16004 - cite
	{0x23, 0x24, 0x25, 0x00}, // 16005 - arene
	{0x26, 0x27, 0x28, 0x11}, // 16006 - luxe
	{0x29, 0x2A, 0x2B, 0x11}, // 16007 - final
	{0x7D, 0x7E, 0x7F, 0x00}, // 16008 - password screen
	{0x7D, 0x7E, 0x7F, 0x00}, // 16009 - password screen
}

const (
	firstPartID = 16000
	lastPartID  = 16009
)

// Pager owns the resource table and the data arena every loaded resource
// lands in. A Pager is constructed once per Game and reused across parts;
// SetupPart tears down and reloads the arena's contents for a new part.
type Pager struct {
	baseDir string
	entries []ResourceEntry
	data    [dataSize]byte

	dataBak int
	dataCur int

	currentPart int

	segCode      int
	segVideoPal  int
	segVideo1    int
	segVideo2    int

	onBitmap func(pixels []byte)
}

// NewPager reads memlist.bin from dataDir and returns a ready-to-use Pager.
// dataDir defaults to "." when empty.
func NewPager(dataDir string) (*Pager, error) {
	if dataDir == "" {
		dataDir = "."
	}
	absBase, err := filepath.Abs(dataDir)
	if err != nil {
		absBase = dataDir
	}

	p := &Pager{baseDir: absBase, currentPart: -1}

	path, ok := p.sanitizePath("memlist.bin")
	if !ok {
		return nil, &IOError{Path: "memlist.bin", Err: os.ErrInvalid}
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	entries, err := ReadEntries(raw)
	if err != nil {
		return nil, err
	}
	p.entries = entries
	return p, nil
}

// sanitizePath rejects absolute paths and ".." segments and verifies the
// joined result stays inside baseDir, the same idiom file_io.go and
// media_loader.go use for user-supplied filenames.
func (p *Pager) sanitizePath(name string) (string, bool) {
	if filepath.IsAbs(name) || strings.Contains(name, "..") {
		return "", false
	}
	full := filepath.Join(p.baseDir, name)
	rel, err := filepath.Rel(p.baseDir, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return full, true
}

// SetupPart tears down and rebuilds the arena for partID (16000..16009),
// unless it is already the current part, in which case only the
// checkpoint-for-later-invalidation bookkeeping runs.
func (p *Pager) SetupPart(partID int) error {
	if partID < firstPartID || partID > lastPartID {
		return &CorruptError{Reason: "setup part: invalid part " + strconv.Itoa(partID)}
	}

	if p.currentPart != partID {
		row := partEntries[partID-firstPartID]

		for i := range p.entries {
			p.entries[i].Status = StatusEmpty
		}
		p.dataCur = 0

		for _, idx := range row {
			if idx != 0 {
				p.entries[idx].Status = StatusPending
			}
		}

		if err := p.loadEntries(); err != nil {
			return err
		}

		p.segVideoPal = p.addressOfEntry(row[0])
		p.segCode = p.addressOfEntry(row[1])
		p.segVideo1 = p.addressOfEntry(row[2])
		if row[3] != 0 {
			p.segVideo2 = p.addressOfEntry(row[3])
		}

		p.currentPart = partID
	}

	p.dataBak = p.dataCur
	return nil
}

func (p *Pager) addressOfEntry(index uint8) int {
	return p.entries[index].Address
}

// AddressOfEntry resolves a resource number to its arena address, loading
// it on demand, and reports false if the resource number is out of range
// or failed to load.
func (p *Pager) AddressOfEntry(resNum uint16) (int, bool) {
	if int(resNum) >= len(p.entries) {
		return 0, false
	}
	if err := p.LoadEntry(int(resNum)); err != nil {
		return 0, false
	}
	if p.entries[resNum].Status != StatusReady {
		return 0, false
	}
	return p.entries[resNum].Address, true
}

// InvalidateRes rolls the arena's watermark back to the last SetupPart
// checkpoint and empties every sound/music/bitmap entry (kind <= 2) and
// every entry of a kind above 6, keeping kinds 3..6, mirroring the
// original's scene-transition cache-flush filter.
func (p *Pager) InvalidateRes() {
	p.dataCur = p.dataBak
	for i := range p.entries {
		k := p.entries[i].Kind
		if k <= 2 || k > 6 {
			p.entries[i].Status = StatusEmpty
		}
	}
}

// LoadEntry requests entry num be loaded if it is not already resident.
func (p *Pager) LoadEntry(num int) error {
	if num < 0 || num >= len(p.entries) {
		logger.Warn("load entry: index out of range", "num", num)
		return nil
	}
	if p.entries[num].Status == StatusEmpty {
		p.entries[num].Status = StatusPending
		return p.loadEntries()
	}
	return nil
}

// loadEntries services every pending entry, highest rank first, exactly as
// the reference loader's max_by_key(rank_num) priority walk does.
func (p *Pager) loadEntries() error {
	for {
		idx := p.highestPendingRank()
		if idx < 0 {
			return nil
		}
		entry := &p.entries[idx]

		var address int
		if entry.Kind == KindBitmap {
			address = dataBmpOffset
		} else {
			if entry.UnpackedSize > dataBmpOffset-p.dataCur {
				return &OutOfArenaError{Requested: entry.UnpackedSize, Available: dataBmpOffset - p.dataCur}
			}
			address = p.dataCur
		}

		if entry.BankNum == 0 {
			logger.Warn("invalid load from bank 0", "entry", idx)
			entry.Status = StatusEmpty
			continue
		}

		if err := p.readBank(entry, address); err != nil {
			return err
		}

		if entry.Kind == KindBitmap {
			if p.onBitmap != nil {
				p.onBitmap(p.data[address : address+entry.UnpackedSize])
			}
			entry.Status = StatusEmpty
		} else {
			entry.Address = address
			entry.Status = StatusReady
			p.dataCur += entry.UnpackedSize
		}
	}
}

// highestPendingRank returns the index of the pending entry with the
// largest RankNum, or -1 if none are pending.
func (p *Pager) highestPendingRank() int {
	best := -1
	for i := range p.entries {
		if p.entries[i].Status != StatusPending {
			continue
		}
		if best < 0 || p.entries[i].RankNum > p.entries[best].RankNum {
			best = i
		}
	}
	return best
}

func (p *Pager) readBank(entry *ResourceEntry, address int) error {
	name := "bank" + hexByte(entry.BankNum)
	path, ok := p.sanitizePath(name)
	if !ok {
		return &IOError{Path: name, Err: os.ErrInvalid}
	}

	f, err := os.Open(path)
	if err != nil {
		return &IOError{Path: path, Err: err}
	}
	defer f.Close()

	if _, err := f.Seek(int64(entry.BankPos), 0); err != nil {
		return &IOError{Path: path, Err: err}
	}

	dst := p.data[address : address+entry.UnpackedSize]
	if entry.PackedSize > len(dst) {
		return &CorruptError{Reason: "bank entry packed size exceeds arena slot"}
	}
	if _, err := readFull(f, dst[:entry.PackedSize]); err != nil {
		return &IOError{Path: path, Err: err}
	}

	if entry.PackedSize != entry.UnpackedSize {
		if err := Unpack(dst, entry.PackedSize); err != nil {
			return err
		}
	}
	return nil
}

// Data returns the whole data arena as a slice, used by the VM/renderer for
// raw resource access (palette tables, code segments, bitmap/video data).
func (p *Pager) Data() []byte { return p.data[:] }

func (p *Pager) SegCode() int     { return p.segCode }
func (p *Pager) SegVideoPal() int { return p.segVideoPal }
func (p *Pager) SegVideo1() int   { return p.segVideo1 }
func (p *Pager) SegVideo2() int   { return p.segVideo2 }

func hexByte(b uint8) string {
	const digits = "0123456789abcdef"
	return string([]byte{digits[b>>4], digits[b&0xf]})
}

func readFull(f *os.File, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := f.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}
