// audio.go - the four-channel tracker/mixer. A Track steps through a
// resource-embedded pattern sequence; each of its 4 logical channels
// resamples a one-shot or looping 8-bit sample into the host's 44.1kHz
// output stream.

package main

import "encoding/binary"

const (
	hostRate = 44100
	gameRate = 11025
)

const (
	volumeUpEffect   = 5
	volumeDownEffect = 6
)

type audioChannel struct {
	sampleAddress int
	sampleLen     uint16
	sampleLoopPos uint16
	sampleLoopLen uint16
	volume        uint16
	pos           Frac
}

type instrument struct {
	address int
	volume  uint16
}

type trackOrderTable [0x80]uint8

type track struct {
	address    int
	curPos     uint16
	curOrder   uint8
	numOrder   uint16
	orderTable trackOrderTable
	samples    [15]instrument
}

// AudioEngine owns the tracker state and the 4 mixer channels; it reads
// resource bytes through the Pager's arena and reports MUSIC_SYNC events
// back to the VM via syncMusic.
type AudioEngine struct {
	pager       *Pager
	delay       uint16
	samplesLeft uint16
	channels    [4]audioChannel
	track       track

	syncMusic func(value uint16)
}

// NewAudioEngine builds an engine bound to pager; syncMusic is called
// whenever a pattern row carries a MUSIC_SYNC marker (note1==0xFFFD).
func NewAudioEngine(pager *Pager, syncMusic func(uint16)) *AudioEngine {
	return &AudioEngine{pager: pager, syncMusic: syncMusic}
}

func cvtDelay(delay uint16) uint16 {
	return uint16(uint32(delay) * 60 / 7050)
}

// addressOfEntryWithKind loads resNum if needed and returns its arena
// address, provided its kind matches the requested one.
func (a *AudioEngine) addressOfEntryWithKind(resNum int, kind ResourceKind) (int, bool) {
	if resNum < 0 || resNum >= len(a.pager.entries) {
		return 0, false
	}
	if err := a.pager.LoadEntry(resNum); err != nil {
		logger.Warn("audio: failed to load resource", "res", resNum, "err", err)
		return 0, false
	}
	entry := a.pager.entries[resNum]
	if entry.Kind != kind || entry.Status != StatusReady {
		return 0, false
	}
	return entry.Address, true
}

// Seek loads and begins playing a music track resource. delay==0 means
// "use the track's own embedded tempo".
func (a *AudioEngine) Seek(resNum uint16, delay uint16, curOrder uint8) {
	address, ok := a.addressOfEntryWithKind(int(resNum), KindMusic)
	if !ok {
		logger.Warn("unable to load music resource", "res", resNum)
		return
	}

	data := a.pager.Data()[address:]
	numOrder := binary.BigEndian.Uint16(data[0x3E:])

	var order trackOrderTable
	copy(order[:], data[64:64+0x80])

	if delay == 0 {
		delay = binary.BigEndian.Uint16(data)
	}
	a.delay = cvtDelay(delay)

	samples := a.prepareInstruments(data[2:])

	a.track = track{
		address:    address + 0xC0,
		curPos:     0,
		curOrder:   curOrder,
		numOrder:   numOrder,
		orderTable: order,
		samples:    samples,
	}
	a.samplesLeft = 0
	a.channels = [4]audioChannel{}
}

func (a *AudioEngine) prepareInstruments(data []byte) [15]instrument {
	var samples [15]instrument
	for i := 0; i < 15; i++ {
		resNum := binary.BigEndian.Uint16(data[i*4:])
		if resNum == 0 {
			continue
		}
		samples[i].volume = binary.BigEndian.Uint16(data[i*4+2:])
		address, ok := a.addressOfEntryWithKind(int(resNum), KindSound)
		if !ok {
			logger.Warn("error loading instrument", "res", resNum)
			continue
		}
		samples[i].address = address
	}
	return samples
}

// IsEndOfTrack reports whether the track's tempo has been cleared
// (StopSoundAndMusic sets it to zero).
func (a *AudioEngine) IsEndOfTrack() bool { return a.delay == 0 }

func (a *AudioEngine) SetDelay(delay uint16) { a.delay = cvtDelay(delay) }

// MixSamples renders len(out)/2 interleaved stereo int16 frames, pulling a
// fresh tracker row via processEvents every time the per-tick sample
// budget is exhausted.
func (a *AudioEngine) MixSamples(out []int16) {
	if a.delay == 0 {
		return
	}

	remaining := uint16(len(out) / 2)
	pos := 0
	samplesPerTick := uint16(hostRate / (1000 / uint32(a.delay)))

	for remaining != 0 {
		if a.samplesLeft == 0 {
			a.processEvents()
			a.samplesLeft = samplesPerTick
		}

		count := a.samplesLeft
		if remaining < count {
			count = remaining
		}
		a.samplesLeft -= count
		remaining -= count

		for i := uint16(0); i < count; i++ {
			sample := a.mixChannel(0, 0)
			sample = a.mixChannel(3, sample)
			out[pos] = int16(sample) * 256

			sample = a.mixChannel(1, 0)
			sample = a.mixChannel(2, sample)
			out[pos+1] = int16(sample) * 256
			pos += 2
		}
	}

	nr(out[:pos])
}

// nr is a one-pole smoothing filter run over the finished stereo buffer.
// It writes the smoothed right-channel sample back into pair[0], never
// pair[1] — a transcription slip in the original this port preserves
// rather than silently fixes, so the smoothed left value is overwritten:
// pair[0] ends up holding the smoothed right signal and pair[1] keeps the
// unsmoothed right sample.
func nr(out []int16) {
	var prevL, prevR int16
	for i := 0; i+1 < len(out); i += 2 {
		l := out[i] >> 1
		out[i] = l + prevL
		prevL = l

		r := out[i+1] >> 1
		out[i] = r + prevR
		prevR = r
	}
}

func clampSample(v int32) int8 {
	if v < -128 {
		return -128
	}
	if v > 127 {
		return 127
	}
	return int8(v)
}

func (a *AudioEngine) mixChannel(ch int, inSample int8) int8 {
	c := &a.channels[ch]
	if c.sampleLen == 0 {
		return inSample
	}

	pos1 := c.pos.Int()
	c.pos.Inc()
	pos2 := pos1 + 1

	if c.sampleLoopLen != 0 {
		if pos2 == uint32(c.sampleLoopPos)+uint32(c.sampleLoopLen) {
			pos2 = uint32(c.sampleLoopPos)
			c.pos.SetInt(pos2)
		}
	} else if pos2 == uint32(c.sampleLen) {
		c.sampleLen = 0
		return inSample
	}

	data := a.pager.Data()[c.sampleAddress:]
	sample := c.pos.Interpolate(int8(data[pos1]), int8(data[pos2]))
	mixed := int32(inSample) + int32(sample)*int32(c.volume)/64
	return clampSample(mixed)
}

func (a *AudioEngine) processEvents() {
	order := a.track.orderTable[a.track.curOrder]
	address := a.track.address + int(a.track.curPos) + int(order)*1024
	for ch := 0; ch < 4; ch++ {
		a.handlePattern(ch, address+ch*4)
	}

	a.track.curPos += 4 * 4
	if a.track.curPos >= 1024 {
		a.track.curPos = 0
		a.track.curOrder++
	}
}

type pattern struct {
	sampleAddress int
	sampleStart   uint16
	sampleLen     uint16
	sampleVolume  uint16
	loopPos       uint16
	loopLen       uint16
}

func (a *AudioEngine) handlePattern(channel int, address int) {
	data := a.pager.Data()[address:]
	note1 := binary.BigEndian.Uint16(data)
	note2 := binary.BigEndian.Uint16(data[2:])

	if note1 == 0xFFFD {
		if a.syncMusic != nil {
			a.syncMusic(note2)
		}
		return
	}

	var pat pattern
	sample := note2 >> 12
	if sample != 0 {
		ins := a.track.samples[sample-1]
		if ins.address != 0 {
			idata := a.pager.Data()[ins.address:]
			pat.sampleStart = 8
			pat.sampleAddress = ins.address
			pat.sampleLen = binary.BigEndian.Uint16(idata) * 2
			loopLen := binary.BigEndian.Uint16(idata[2:]) * 2

			loopPos := uint16(0)
			if loopLen != 0 {
				loopPos = pat.sampleLen
			} else {
				loopLen = 0
			}
			pat.loopPos = loopPos
			pat.loopLen = loopLen

			effect := (note2 >> 8) & 0xF
			amount := note2 & 0xFF
			volume := ins.volume
			switch effect {
			case volumeUpEffect:
				volume += amount
				if volume > 0x3F {
					volume = 0x3F
				}
			case volumeDownEffect:
				if amount > volume {
					volume = 0
				} else {
					volume -= amount
				}
			}
			pat.sampleVolume = volume
			a.channels[channel].volume = volume
		}
	}

	switch {
	case note1 == 0xFFFE:
		a.channels[channel].sampleLen = 0
	case note1 != 0 && pat.sampleAddress != 0:
		if note1 < 0x37 || note1 >= 0x1000 {
			logger.Warn("pattern note out of range", "note1", note1)
			return
		}
		freq := uint16(7159092 / (uint32(note1) * 2))
		c := &a.channels[channel]
		c.sampleAddress = pat.sampleAddress + int(pat.sampleStart)
		c.sampleLen = pat.sampleLen
		c.sampleLoopPos = pat.loopPos
		c.sampleLoopLen = pat.loopLen
		c.volume = pat.sampleVolume
		c.pos = NewFrac(uint32(freq), hostRate)
	}
}

// PlaySound begins a one-shot or looping sample on channel via the
// HostSink, not the tracker mixer (the SOUND VM opcode bypasses patterns
// entirely and drives channels directly).
func (a *AudioEngine) PlaySound(sink HostSink, channel uint8, address int, freq uint16, volume uint8) {
	data := a.pager.Data()[address:]
	length := binary.BigEndian.Uint16(data) * 2
	loopLen := binary.BigEndian.Uint16(data[2:]) * 2

	loops := 0
	if loopLen != 0 {
		length = loopLen
		loops = -1
	}

	sink.PlaySample(channel, freq, volume, data[8:8+int(length)], loops)
}

func (a *AudioEngine) StopSound(sink HostSink, channel uint8) {
	sink.StopChannel(channel)
}

func (a *AudioEngine) StopSoundAndMusic(sink HostSink) {
	for ch := uint8(0); ch < 4; ch++ {
		a.StopSound(sink, ch)
	}
	a.SetDelay(0)
}
