// host_ebiten.go - the default HostSink: an ebiten window for presentation
// and input, an oto/v3 context for the mixed tracker stream, plus four
// independent oto players for the one-shot SOUND-opcode channels.

package main

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// EbitenHostSink is the production HostSink: ebiten owns the window and
// keyboard, oto owns the speaker.
type EbitenHostSink struct {
	img *ebiten.Image

	mu       sync.RWMutex
	pixels   []uint16
	input    atomic.Pointer[InputState]
	quitFlag atomic.Bool

	otoCtx     *oto.Context
	mixPlayer  *oto.Player
	mixRing    chan []int16
	sfxPlayers [4]*sfxChannelPlayer

	fullscreen bool
}

// sfxChannelPlayer wraps one oto.Player for a single hardware SOUND
// channel, its source swapped on each play call through an atomic pointer
// so the audio callback's hot path takes no lock. (The tracker mixer
// stream instead arrives through the buffered mixRing channel.)
type sfxChannelPlayer struct {
	ctx    *oto.Context
	player *oto.Player
	src    atomic.Pointer[sfxSource]
	mu     sync.Mutex
}

type sfxSource struct {
	data  []byte
	loops int
	pos   int
}

func (s *sfxChannelPlayer) Read(p []byte) (int, error) {
	src := s.src.Load()
	if src == nil {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}
	n := 0
	for n < len(p) {
		if src.pos >= len(src.data) {
			if src.loops < 0 || src.loops > 0 {
				if src.loops > 0 {
					src.loops--
				}
				src.pos = 0
			} else {
				for ; n < len(p); n++ {
					p[n] = 0
				}
				break
			}
		}
		p[n] = src.data[src.pos]
		src.pos++
		n++
	}
	return n, nil
}

func (s *sfxChannelPlayer) play(data []byte, loops int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src.Store(&sfxSource{data: data, loops: loops})
	if s.player == nil {
		s.player = s.ctx.NewPlayer(s)
	}
	s.player.Play()
}

func (s *sfxChannelPlayer) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src.Store(nil)
	if s.player != nil {
		s.player.Pause()
	}
}

// mixReader adapts the audio engine's []int16 ring into oto's
// byte-stream Read contract.
type mixReader struct {
	ring    chan []int16
	pending []int16
}

func (m *mixReader) Read(p []byte) (int, error) {
	out := p
	written := 0
	for len(out) >= 2 {
		if len(m.pending) == 0 {
			select {
			case next := <-m.ring:
				m.pending = next
			default:
				out[0], out[1] = 0, 0
				out = out[2:]
				written += 2
				continue
			}
		}
		s := m.pending[0]
		out[0] = byte(s)
		out[1] = byte(s >> 8)
		m.pending = m.pending[1:]
		out = out[2:]
		written += 2
	}
	return written, nil
}

// NewEbitenHostSink constructs and starts the oto context; the ebiten
// window itself is started lazily by Run, mirroring NewOtoPlayer/Start's
// two-phase construct-then-start split.
func NewEbitenHostSink(fullscreen bool) (*EbitenHostSink, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   hostRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   time.Millisecond * 40,
	})
	if err != nil {
		return nil, err
	}
	<-ready

	h := &EbitenHostSink{
		pixels:     make([]uint16, fbSize),
		otoCtx:     ctx,
		mixRing:    make(chan []int16, 4),
		fullscreen: fullscreen,
	}
	for i := range h.sfxPlayers {
		h.sfxPlayers[i] = &sfxChannelPlayer{ctx: ctx}
	}
	h.mixPlayer = ctx.NewPlayer(&mixReader{ring: h.mixRing})
	h.mixPlayer.Play()

	zero := InputState{}
	h.input.Store(&zero)
	return h, nil
}

func (h *EbitenHostSink) PresentFrame(pixels []uint16) {
	h.mu.Lock()
	copy(h.pixels, pixels)
	h.mu.Unlock()
}

func (h *EbitenHostSink) PlaySample(channel uint8, freq uint16, volume uint8, data []byte, loops int) {
	if int(channel) >= len(h.sfxPlayers) {
		return
	}
	_ = freq // channel playback rate is fixed at hostRate; freq drives the tracker's own Frac cursor upstream
	_ = volume
	h.sfxPlayers[channel].play(data, loops)
}

func (h *EbitenHostSink) StopChannel(channel uint8) {
	if int(channel) >= len(h.sfxPlayers) {
		return
	}
	h.sfxPlayers[channel].stop()
}

func (h *EbitenHostSink) MixWrite(stereo []int16) {
	buf := make([]int16, len(stereo))
	copy(buf, stereo)
	select {
	case h.mixRing <- buf:
	default:
		logger.Warn("audio mix ring full, dropping tick")
	}
}

func (h *EbitenHostSink) PollInput() InputState {
	if p := h.input.Load(); p != nil {
		return *p
	}
	return InputState{}
}

func (h *EbitenHostSink) SleepMs(ms int) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

// Run starts the ebiten window loop; call from main's goroutine. Blocks
// until the window closes.
func (h *EbitenHostSink) Run() error {
	ebiten.SetWindowSize(scrW*3, scrH*3)
	ebiten.SetWindowTitle("Another World")
	ebiten.SetFullscreen(h.fullscreen)
	h.img = ebiten.NewImage(scrW, scrH)
	return ebiten.RunGame(h)
}

func (h *EbitenHostSink) Update() error {
	if ebiten.IsWindowBeingClosed() {
		h.quitFlag.Store(true)
	}

	var in InputState
	in.Quit = h.quitFlag.Load()
	in.Up = ebiten.IsKeyPressed(ebiten.KeyUp)
	in.Down = ebiten.IsKeyPressed(ebiten.KeyDown)
	in.Left = ebiten.IsKeyPressed(ebiten.KeyLeft)
	in.Right = ebiten.IsKeyPressed(ebiten.KeyRight)
	in.Button = ebiten.IsKeyPressed(ebiten.KeySpace) || ebiten.IsKeyPressed(ebiten.KeyEnter)
	in.Pause = inpututil.IsKeyJustPressed(ebiten.KeyP)
	in.Code = ebiten.IsKeyPressed(ebiten.KeyC)
	if chars := ebiten.AppendInputChars(nil); len(chars) > 0 {
		in.LastChar = chars[0]
	}
	h.input.Store(&in)
	return nil
}

func (h *EbitenHostSink) Draw(screen *ebiten.Image) {
	h.mu.RLock()
	pixels := make([]uint16, len(h.pixels))
	copy(pixels, h.pixels)
	h.mu.RUnlock()

	rgba := make([]byte, fbSize*4)
	for i, p := range pixels {
		r := uint8((p>>11)&0x1F) << 3
		g := uint8((p>>5)&0x3F) << 2
		b := uint8(p&0x1F) << 3
		rgba[i*4+0] = r
		rgba[i*4+1] = g
		rgba[i*4+2] = b
		rgba[i*4+3] = 0xFF
	}
	h.img.WritePixels(rgba)
	screen.DrawImage(h.img, nil)
}

func (h *EbitenHostSink) Layout(_, _ int) (int, int) { return scrW, scrH }
