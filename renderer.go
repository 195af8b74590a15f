// renderer.go - the 320x200 indexed-color polygon renderer: four
// framebuffers, page select/fill/copy/swap, the quad-strip polygon
// rasterizer, glyph/bitmap blits, and RGB565 readback for presentation.

package main

const (
	scrW   = 320
	scrH   = 200
	fbSize = scrW * scrH

	colAlpha = 0x10
	colPage  = 0x11
)

// RgbColor is one 16-color-palette entry.
type RgbColor struct {
	R, G, B uint8
}

func (c RgbColor) rgb565() uint16 {
	r := (uint16(c.R) & 0xF8) << 8
	g := (uint16(c.G) & 0xFC) << 3
	b := uint16(c.B) >> 3
	return r | g | b
}

// Vertex is one quad-strip point in screen space.
type Vertex struct {
	X, Y int16
}

// quadStrip holds the polygon opcode's decoded vertex ring, capped at the
// same 70-vertex bound the original fixed-size array enforces.
type quadStrip struct {
	vertices [70]Vertex
	count    int
}

func (q *quadStrip) push(v Vertex) {
	if q.count == len(q.vertices) {
		return
	}
	q.vertices[q.count] = v
	q.count++
}

func (q *quadStrip) slice() []Vertex { return q.vertices[:q.count] }

// Renderer owns the four framebuffers, the active palette, and the
// front/back/working-page translation table.
type Renderer struct {
	fb     [4][fbSize]byte
	pal    [16]RgbColor
	fbXlat [3]uint8

	dc            uint16
	useSeg2       bool
	useEgaPal     bool
	curPalNum     int // -1 means "unknown"
	needsPalFixup bool
}

// NewRenderer returns a Renderer with the original's boot-time page
// assignment (page 2 both the working page and the initial front buffer,
// page 1 the back buffer).
func NewRenderer() *Renderer {
	return &Renderer{
		fbXlat:        [3]uint8{2, 2, 1},
		curPalNum:     -1,
		needsPalFixup: true,
	}
}

func (r *Renderer) NeedsPalFixup() bool        { return r.needsPalFixup }
func (r *Renderer) ClearPalFixup()             { r.needsPalFixup = false }
func (r *Renderer) InvalidatePalNum()          { r.curPalNum = -1 }
func (r *Renderer) SetDC(dc uint16, seg2 bool) { r.dc, r.useSeg2 = dc, seg2 }
func (r *Renderer) SetUseEgaPal(on bool)       { r.useEgaPal = on }

func (r *Renderer) translatePage(n uint8) uint8 {
	switch {
	case n <= 3:
		return n
	case n == 0xFE:
		return r.fbXlat[1]
	case n == 0xFF:
		return r.fbXlat[2]
	default:
		logger.Warn("invalid page index", "page", n)
		return 0
	}
}

func (r *Renderer) SelectPage(n uint8) {
	r.fbXlat[0] = r.translatePage(n)
}

func (r *Renderer) FillPage(n uint8, color uint8) {
	page := r.translatePage(n)
	fb := &r.fb[page]
	for i := range fb {
		fb[i] = color
	}
}

// CopyPage copies src into dst, optionally vertically scrolled. Unlike the
// reference's raw pointer arithmetic (which computes an offset pointer and
// then never uses it for anything but a byte-count copy, a vestige the
// spec calls out as a latent bug), this walks explicit slice windows so
// the scroll offset actually participates in which bytes move.
func (r *Renderer) CopyPage(src, dst uint8, vScroll int16) {
	dstPage := r.translatePage(dst)
	switch {
	case src >= 0xFE:
		srcPage := r.translatePage(src)
		r.copyFB(dstPage, srcPage, 0)
	case src&0x80 == 0:
		srcPage := r.translatePage(src & 0xBF)
		r.copyFB(dstPage, srcPage, 0)
	default:
		srcPage := r.translatePage(src & 3)
		if srcPage != dstPage && vScroll >= -199 && vScroll <= 199 {
			r.copyFB(dstPage, srcPage, int(vScroll))
		}
	}
}

func (r *Renderer) copyFB(dstFB, srcFB uint8, vScroll int) {
	if dstFB == srcFB {
		return
	}
	dst := &r.fb[dstFB]
	src := &r.fb[srcFB]

	switch {
	case vScroll < -199 || vScroll > 199:
		return
	case vScroll < 0:
		n := (scrH + vScroll) * scrW
		copy(dst[:n], src[-vScroll*scrW:])
	case vScroll > 0:
		n := (scrH - vScroll) * scrW
		copy(dst[vScroll*scrW:], src[:n])
	default:
		copy(dst[:], src[:])
	}
}

// SwapPages retargets the front-buffer slot (fbXlat[1]) and returns the
// resulting front-buffer index. 0xFE leaves the front buffer unchanged,
// 0xFF swaps the front and back buffers, and any other value makes that
// (translated) page the front buffer.
func (r *Renderer) SwapPages(newFrontFB uint8) uint8 {
	if newFrontFB != 0xFE {
		if newFrontFB == 0xFF {
			r.fbXlat[1], r.fbXlat[2] = r.fbXlat[2], r.fbXlat[1]
		} else {
			r.fbXlat[1] = r.translatePage(newFrontFB)
		}
	}
	return r.fbXlat[1]
}

func (r *Renderer) out(fb uint8, x, y uint16, color uint8) {
	if x >= scrW || y >= scrH {
		return
	}
	r.fb[fb][int(y)*scrW+int(x)] = color
}

func (r *Renderer) grab(fb uint8, x, y uint16) uint8 {
	return r.fb[fb][int(y)*scrW+int(x)]
}

func (r *Renderer) drawPoint(fb uint8, x, y uint16, color uint8) {
	switch color {
	case colAlpha:
		color = r.grab(fb, x, y) | 8
	case colPage:
		color = r.grab(0, x, y)
	}
	r.out(fb, x, y, color)
}

func calcStep(v1, v2 Vertex) (uint32, uint16) {
	dy := uint16(v2.Y - v1.Y)
	delta := dy
	if delta == 0 {
		delta = 1
	}
	step := (int32(v2.X-v1.X) << 16) / int32(delta)
	return uint32(step), dy
}

func (r *Renderer) drawHLine(fb uint8, offset int, w uint16, color uint8) {
	switch color {
	case colAlpha:
		p := r.fb[fb][offset:]
		for i := 0; i < int(w); i++ {
			p[i] |= 8
		}
	case colPage:
		if fb != 0 {
			for i := 0; i < int(w); i++ {
				r.fb[fb][offset+i] = r.fb[0][offset+i]
			}
		}
	default:
		p := r.fb[fb][offset:]
		for i := 0; i < int(w); i++ {
			p[i] = color
		}
	}
}

// drawPolygon rasterizes a quad-strip scanline by scanline, stepping two
// edge cursors in 16.16 fixed point. The 0x7FFF/0x8000 low-word biases on
// cpt1/cpt2 are the original's exact sub-pixel rounding, not arbitrary
// constants: they bias x1 to round down and x2 to round up so adjacent
// polygon spans tile without 1px seams.
func (r *Renderer) drawPolygon(fb uint8, qs *quadStrip, color uint8) {
	vs := qs.slice()
	if len(vs) <= 2 {
		return
	}

	i := 0
	j := len(vs) - 1

	x2 := vs[i].X
	x1 := vs[j].X
	hLineY := vs[i].Y
	if vs[j].Y < hLineY {
		hLineY = vs[j].Y
	}

	i++
	j--

	cpt1 := uint32(uint16(x1)) << 16
	cpt2 := uint32(uint16(x2)) << 16

	count := len(vs)
	for count > 2 {
		count -= 2

		step1, _ := calcStep(vs[j+1], vs[j])
		step2, h := calcStep(vs[i-1], vs[i])

		i++
		j--

		cpt1 = (cpt1 & 0xFFFF0000) | 0x7FFF
		cpt2 = (cpt2 & 0xFFFF0000) | 0x8000

		if h == 0 {
			cpt1 += step1
			cpt2 += step2
			continue
		}

		done := false
		for h > 0 {
			h--
			if hLineY >= 0 {
				rx1 := int16(cpt1 >> 16)
				rx2 := int16(cpt2 >> 16)
				if rx1 < scrW && rx2 >= 0 {
					if rx1 < 0 {
						rx1 = 0
					}
					if rx2 >= scrW {
						rx2 = scrW - 1
					}
					xMax, xMin := rx1, rx1
					if rx2 > xMax {
						xMax = rx2
					}
					if rx2 < xMin {
						xMin = rx2
					}
					w := xMax - xMin + 1
					offset := int(hLineY)*scrW + int(xMin)
					r.drawHLine(fb, offset, uint16(w), color)
				}
			}
			cpt1 += step1
			cpt2 += step2
			hLineY++
			if hLineY >= scrH {
				done = true
				break
			}
		}
		if done {
			break
		}
	}
}

func (r *Renderer) SetPalette(pal [16]RgbColor) { r.pal = pal }

// ReadPixels converts a framebuffer to RGB565 into a caller-owned buffer,
// handed straight to HostSink.PresentFrame without an intermediate copy.
func (r *Renderer) ReadPixels(fb uint8, out []uint16) {
	src := &r.fb[fb]
	for i, p := range src {
		out[i] = r.pal[p].rgb565()
	}
}

// DrawBitmap replaces framebuffer fb's contents wholesale, used for the
// planar full-screen backgrounds CopyBitmap unpacks.
func (r *Renderer) DrawBitmap(fb uint8, data *[fbSize]byte) {
	r.fb[fb] = *data
}

// DrawChar blits one glyph from the built-in font at (x,y) in framebuffer
// fbXlat[0].
func (r *Renderer) DrawChar(x, y uint16, c rune, color uint8) {
	if x > scrW-8 || y > scrH-8 {
		return
	}
	fb := r.fbXlat[0]
	glyph := glyphFor(c)
	for j := uint16(0); j < 8; j++ {
		line := glyph[j]
		for i := uint16(0); i < 8; i++ {
			if line&(1<<(7-i)) != 0 {
				r.out(fb, x+i, y+j, color)
			}
		}
	}
}

// DrawString draws a (possibly multi-line, '\n'-separated) string at
// (x,y) using the built-in string table for lookup by id.
func (r *Renderer) DrawString(x, y uint16, strID uint16, color uint8) {
	text, ok := lookupString(strID)
	if !ok {
		logger.Warn("unknown string id", "id", strID)
		return
	}
	left := x
	for _, c := range text {
		if c == '\n' {
			x = left
			y += 8
			continue
		}
		r.DrawChar(x*8, y, c, color)
		x++
	}
}

// CopyBitmap unpacks a 4-plane-interleaved 320x200 bitmap (the resource
// pager's raw BITMAP kind payload) into 4-bit packed framebuffer pixels
// and writes it to page 0.
func (r *Renderer) CopyBitmap(mem []byte) {
	var image [fbSize]byte
	di := 0
	for y := 0; y < 200; y++ {
		for w := 0; w < 40; w++ {
			n := y*40 + w
			p := [4]byte{mem[8000*3+n], mem[8000*2+n], mem[8000*1+n], mem[8000*0+n]}
			for k := 0; k < 4; k++ {
				var acc byte
				for i := 0; i < 8; i++ {
					acc <<= 1
					acc |= (p[i&3] >> 7) & 1
					p[i&3] <<= 1
				}
				image[di] = acc >> 4
				image[di+1] = acc & 0x0F
				di += 2
			}
		}
	}
	r.DrawBitmap(0, &image)
}
