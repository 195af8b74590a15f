package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFracIntAndSetInt(t *testing.T) {
	f := NewFrac(gameRate, hostRate)
	require.Equal(t, uint32(0), f.Int())
	f.SetInt(5)
	require.Equal(t, uint32(5), f.Int())
}

func TestFracIncAdvancesBySourceOverHostRatio(t *testing.T) {
	f := NewFrac(hostRate, hostRate) // 1:1 resample should advance exactly one sample per tick
	f.Inc()
	require.Equal(t, uint32(1), f.Int())
}

func TestFracInterpolateMidpoint(t *testing.T) {
	f := NewFrac(hostRate, hostRate*2) // half-speed cursor sits at frac 0x8000 after one Inc
	f.Inc()
	got := f.Interpolate(0, 100)
	require.InDelta(t, 50, int(got), 1)
}

func TestCvtDelay(t *testing.T) {
	require.Equal(t, uint16(0), cvtDelay(0))
	require.Equal(t, uint16(6), cvtDelay(706))
}

func TestClampSample(t *testing.T) {
	require.EqualValues(t, 127, clampSample(500))
	require.EqualValues(t, -128, clampSample(-500))
	require.EqualValues(t, 42, clampSample(42))
}

func TestMixChannelPassesThroughWhenSilent(t *testing.T) {
	a := &AudioEngine{pager: &Pager{}}
	got := a.mixChannel(0, 17)
	require.EqualValues(t, 17, got)
}

func TestMixChannelAdvancesAndLoops(t *testing.T) {
	pager := &Pager{}
	data := pager.data[:]
	data[0], data[1] = 10, 20

	a := &AudioEngine{pager: pager}
	a.channels[0] = audioChannel{
		sampleAddress: 0,
		sampleLen:     2,
		sampleLoopPos: 0,
		sampleLoopLen: 2,
		volume:        64,
		pos:           NewFrac(hostRate, hostRate),
	}

	out := a.mixChannel(0, 0)
	require.NotEqual(t, int8(0), out)
	require.EqualValues(t, 2, a.channels[0].sampleLen, "looped channel keeps its length, never zeroes out")
}

func TestMixChannelEndsNonLoopingSample(t *testing.T) {
	pager := &Pager{}
	a := &AudioEngine{pager: pager}
	a.channels[0] = audioChannel{
		sampleAddress: 0,
		sampleLen:     1,
		volume:        64,
		pos:           NewFrac(hostRate, hostRate),
	}

	_ = a.mixChannel(0, 0)
	require.EqualValues(t, 0, a.channels[0].sampleLen)
}

func TestNrLeavesRightSlotsUntouched(t *testing.T) {
	// Documents the preserved transcription bug: nr's left-channel
	// computation is discarded, out[i] is overwritten twice (ending with the
	// right-derived value) and out[i+1] (the true right slot) is never
	// touched.
	out := []int16{100, 200, 300, 400}
	before1 := out[1]
	before3 := out[3]
	nr(out)
	require.Equal(t, before1, out[1])
	require.Equal(t, before3, out[3])
}
