// host.go - the boundary between the VM/renderer/audio core and whatever
// actually puts pixels on a screen, samples out a speaker, and keystrokes
// into the input register. Every concrete backend (ebiten+oto, or the
// headless stand-in used by tests) implements this same small interface.

package main

// InputState mirrors the handful of buttons/axes the VM's input opcodes
// read every frame.
type InputState struct {
	Up, Down, Left, Right bool
	Button                bool
	Code                  bool // Ctrl+C-style "enter code screen" key
	Pause                 bool
	Quit                  bool
	LastChar              rune // last ASCII key pressed this frame, 0 if none
}

// HostSink is everything the core VM needs from the outside world.
type HostSink interface {
	// PresentFrame hands over one RGB565 320x200 framebuffer for display.
	PresentFrame(pixels []uint16)

	// PlaySample starts a one-shot or looping raw 8-bit PCM sample on the
	// given hardware channel (0..3), resampled from freq Hz. loops < 0
	// means "loop forever", 0 means "play once".
	PlaySample(channel uint8, freq uint16, volume uint8, data []byte, loops int)

	// StopChannel halts whatever PlaySample started on channel.
	StopChannel(channel uint8)

	// MixWrite delivers one tick's worth of tracker-mixed stereo PCM,
	// destined for continuous playback rather than a one-shot channel.
	MixWrite(stereo []int16)

	// PollInput returns the current input snapshot for this frame.
	PollInput() InputState

	// SleepMs pauses for roughly the given number of milliseconds, used
	// by the VM's frame-pacing opcode.
	SleepMs(ms int)
}
