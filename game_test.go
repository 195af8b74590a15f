// game_test.go - end-to-end scenarios driven through Game.RunFrame against
// the headless NullHostSink, exercising whole frames rather than individual
// opcodes the way vm_test.go's unit tests do.

package main

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// newScenarioGame builds a Game against a synthetic in-memory Pager with
// bytecode preloaded at segCode offset 0 and enough resource-entry slots
// that SetupPart's row lookups never go out of bounds (every entry's
// BankNum stays 0, so loadEntries logs and skips it rather than touching
// disk — exactly the "invalid load from bank 0" path pager.go already
// handles).
func newScenarioGame(t *testing.T, code []byte) *Game {
	t.Helper()
	pager := &Pager{currentPart: -1, entries: make([]ResourceEntry, 128)}
	copy(pager.data[:], code)

	g := &Game{
		vm:       NewVM(),
		pager:    pager,
		renderer: NewRenderer(),
		sink:     NewNullHostSink(),
	}
	g.audio = NewAudioEngine(pager, g.vm.SyncMusic)
	return g
}

func TestSceneTableCoversFullAcceptedRange(t *testing.T) {
	for scene := 0; scene <= 35; scene++ {
		part, ok := partForScene(scene)
		require.True(t, ok, "scene %d must resolve", scene)
		require.Equal(t, 16000+scene%10, part)
	}
	_, ok := partForScene(36)
	require.False(t, ok)
}

// TestProtectionBypassTransitionsToNextPart is end-to-end scenario 2: a task
// running on the protection part (16000) takes the forced-true branch of a
// var-vs-reg compare against register 0x29 (the bypass condition
// opCondJmp special-cases) and issues an update_resources switch to part
// 16001; the switch only actually lands on the next frame, once stageTasks
// applies the pending next_part.
func TestProtectionBypassTransitionsToNextPart(t *testing.T) {
	code := []byte{
		0x0A, 0x80, 0x29, 0x00, 0x00, 0x08, // cond_jmp var[0x29] vs reg[0] -> pc 8 (forced true via bypass)
		0, 0, // padding up to offset 8
		0x19, 0x3E, 0x81, // update_resources 16001
		0x06, // yield_task
	}
	g := newScenarioGame(t, code)
	g.currentPart = 16000
	g.bypassProtection = true
	g.vm.tasks[0].pc = 0

	g.RunFrame()
	require.EqualValues(t, 16001, g.nextPart, "switch is staged, not yet applied")
	require.Equal(t, 16000, g.currentPart)

	g.RunFrame()
	require.Equal(t, 16001, g.currentPart, "stageTasks applied the pending part switch")
}

// TestScriptedHaltStopsTaskAfterTwoFrames is end-to-end scenario 3: task 0
// installs task 5 at a given pc and halts itself; task 5 only starts
// running the frame after stageTasks copies its pending pc across, and its
// body is a single REMOVE_TASK opcode that halts it immediately.
func TestScriptedHaltStopsTaskAfterTwoFrames(t *testing.T) {
	code := make([]byte, 0x11)
	copy(code, []byte{0x08, 5, 0x00, 0x10, 0x11, 0x06})
	code[0x10] = 0x11 // task 5's body: remove_task

	g := newScenarioGame(t, code)
	g.vm.tasks[0].pc = 0

	g.RunFrame()
	require.EqualValues(t, 0x10, g.vm.pendingTasks[5].pc)
	require.EqualValues(t, haltPC, g.vm.tasks[5].pc, "task 5 not staged in yet")

	g.RunFrame()
	require.EqualValues(t, haltPC, g.vm.tasks[5].pc, "task 5 ran its single remove_task and halted")
}

// TestMusicSyncRegisterUpdatedAfterHandlePattern is end-to-end scenario 6:
// a pattern row carrying the MUSIC_SYNC marker (note1==0xFFFD) updates
// register 0xF4 with the row's second word, independent of any loaded
// music resource.
func TestMusicSyncRegisterUpdatedAfterHandlePattern(t *testing.T) {
	g := newScenarioGame(t, nil)
	binary.BigEndian.PutUint16(g.pager.data[100:], 0xFFFD)
	binary.BigEndian.PutUint16(g.pager.data[102:], 0x1234)

	g.audio.handlePattern(0, 100)

	require.EqualValues(t, 0x1234, g.vm.regs[regMusicSync])
}

// TestBootLoopPresentsFramesAndAdvancesMusic is end-to-end scenario 1: a
// task that fills the working page, swaps it to the front buffer and
// yields every frame must, over many frames, both present a non-blank
// frame and advance the tracker's current order. The pattern data itself
// is synthetic (no real bank is loaded) but the tracker stepping it runs
// through is the genuine processEvents/curPos/curOrder machinery.
func TestBootLoopPresentsFramesAndAdvancesMusic(t *testing.T) {
	code := []byte{
		0x0E, 0x01, 0x01, // fill_page page=1 color=1
		0x10, 0x01, // update_display page=1
		0x06,       // yield_task
		0x07, 0, 0, // jmp 0
	}
	g := newScenarioGame(t, code)
	g.vm.tasks[0].pc = 0
	g.vm.regs[regPauseSlices] = 1

	var pal [16]RgbColor
	pal[1] = RgbColor{R: 0xF8, G: 0, B: 0}
	g.renderer.SetPalette(pal)

	// delay=20 makes samplesPerTick exactly one frame's worth of samples,
	// so each RunFrame mixes exactly one tracker row: enough to advance
	// curOrder past zero well within 100 frames without walking
	// orderTable (a fixed 128-entry table) past its bound.
	g.audio.delay = 20
	g.audio.track = track{numOrder: 2}

	for i := 0; i < 100; i++ {
		g.RunFrame()
	}

	sink := g.sink.(*NullHostSink)
	require.Equal(t, 100, sink.Frames)
	require.NotEmpty(t, sink.LastFrame)
	for _, px := range sink.LastFrame {
		require.Equal(t, pal[1].rgb565(), px)
	}
	require.GreaterOrEqual(t, g.audio.track.curOrder, uint8(1))
}
