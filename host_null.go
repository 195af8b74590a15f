// host_null.go - a headless HostSink for tests and scripted batch runs: it
// records what it was asked to do instead of touching a screen or speaker.

package main

import "sync"

// NullHostSink is a HostSink that never blocks and never renders, with
// enough bookkeeping for tests to assert against.
type NullHostSink struct {
	mu sync.Mutex

	Frames     int
	LastFrame  []uint16
	Played     []PlayedSample
	Stopped    []uint8
	MixWrites  int
	LastMix    []int16
	NextInput  InputState
	SleptMs    int
}

// PlayedSample records one PlaySample call for test assertions.
type PlayedSample struct {
	Channel uint8
	Freq    uint16
	Volume  uint8
	Len     int
	Loops   int
}

func NewNullHostSink() *NullHostSink {
	return &NullHostSink{}
}

func (n *NullHostSink) PresentFrame(pixels []uint16) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Frames++
	n.LastFrame = append(n.LastFrame[:0], pixels...)
}

func (n *NullHostSink) PlaySample(channel uint8, freq uint16, volume uint8, data []byte, loops int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Played = append(n.Played, PlayedSample{Channel: channel, Freq: freq, Volume: volume, Len: len(data), Loops: loops})
}

func (n *NullHostSink) StopChannel(channel uint8) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Stopped = append(n.Stopped, channel)
}

func (n *NullHostSink) MixWrite(stereo []int16) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.MixWrites++
	n.LastMix = append(n.LastMix[:0], stereo...)
}

func (n *NullHostSink) PollInput() InputState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.NextInput
}

func (n *NullHostSink) SleepMs(ms int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.SleptMs += ms
}
