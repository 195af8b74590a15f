// game.go - ties the bit unpacker, resource pager, renderer, audio engine
// and VM into one cooperatively-scheduled game loop, and is the receiver
// every VM opcode in vm.go hangs off.

package main

// Game is the complete running state of one Another World session.
type Game struct {
	vm       *VM
	pager    *Pager
	renderer *Renderer
	audio    *AudioEngine
	sink     HostSink

	currentPart int
	nextPart    uint16 // 0 means "no part switch pending"
	screenNum   *int16
	nextPal     int16 // 0 means none pending, else (palette number + 1)

	loopingGunQuirk  bool
	bypassProtection bool
}

// NewGame wires up a session against the resource tree at dataDir,
// presenting frames and audio through sink.
func NewGame(dataDir string, sink HostSink, useEgaPal bool, bypassProtection bool) (*Game, error) {
	pager, err := NewPager(dataDir)
	if err != nil {
		return nil, err
	}

	renderer := NewRenderer()
	renderer.SetUseEgaPal(useEgaPal)

	g := &Game{
		vm:               NewVM(),
		pager:            pager,
		renderer:         renderer,
		sink:             sink,
		bypassProtection: bypassProtection,
	}
	g.audio = NewAudioEngine(pager, g.vm.SyncMusic)
	return g, nil
}

// RunFrame advances the game by exactly one VM frame: stage any pending
// task/part switch, sample this frame's input, then round-robin every
// live task once.
func (g *Game) RunFrame() {
	g.stageTasks()
	g.updateInput(g.sink.PollInput())
	g.runTasks()
}

// produceMusic mixes one tracker tick's worth of audio and hands it to
// the host for playback; a no-op once the current track has ended.
func (g *Game) produceMusic() {
	if g.audio.IsEndOfTrack() {
		return
	}
	const ticksPerFrame = hostRate / vmHz
	buf := make([]int16, ticksPerFrame*2)
	g.audio.MixSamples(buf)
	g.sink.MixWrite(buf)
}

func (g *Game) loadPalMem(num uint8) {
	g.renderer.LoadPalette(g.pager.Data(), g.pager.SegVideoPal(), num)
}

// RestartFromScene jumps straight to a scene number, mirroring the CLI's
// --scene flag: scenes in range resolve through the scene table (and in a
// full build would additionally seed a starting position), anything else
// is treated as a raw part ID.
func (g *Game) RestartFromScene(scene int) {
	if partID, ok := partForScene(scene); ok {
		g.restartAt(uint16(partID), -1)
		return
	}
	g.restartAt(uint16(scene), -1)
}
