// shape.go - polygon-opcode operand decoding: the DRAW_SHAPE bytecode
// operator recurses through a small resource-embedded shape tree, fetching
// its operands from the current video data segment (seg1 or seg2,
// selected by SetDC) rather than from the VM's register file.

package main

// fetchU8 reads the next operand byte from the active video segment and
// advances the data cursor.
func (r *Renderer) fetchU8(data []byte, seg1, seg2 int) uint8 {
	base := seg1
	if r.useSeg2 {
		base = seg2
	}
	b := data[base+int(r.dc)]
	r.dc++
	return b
}

func (r *Renderer) fetchU16(data []byte, seg1, seg2 int) uint16 {
	hi := uint16(r.fetchU8(data, seg1, seg2))
	lo := uint16(r.fetchU8(data, seg1, seg2))
	return hi<<8 | lo
}

func fetchDim(b uint8, zoom uint16) int16 {
	return int16(uint32(b) * uint32(zoom) / 64)
}

// DrawShape is the polygon opcode's entry point: color has its high bit
// set when the caller wants per-shape color overridden by the low 6 bits
// of the opcode byte (the "use embedded color" convention), clear when the
// caller's own color should be forced through unconditionally.
func (r *Renderer) DrawShape(data []byte, seg1, seg2 int, x, y int16, zoom uint16, color uint8) {
	op := r.fetchU8(data, seg1, seg2)
	if op >= 0xC0 {
		c := color
		if color&0x80 != 0 {
			c = op & 0x3F
		}
		oldDC := r.dc
		r.fillPolygon(data, seg1, seg2, x, y, zoom, c)
		r.dc = oldDC
		return
	}

	switch op & 0x3F {
	case 2:
		r.drawShapeParts(data, seg1, seg2, x, y, zoom)
	default:
		logger.Warn("invalid video op", "op", op&0x3F)
	}
}

func (r *Renderer) fillPolygon(data []byte, seg1, seg2 int, x, y int16, zoom uint16, color uint8) {
	bbw := fetchDim(r.fetchU8(data, seg1, seg2), zoom)
	bbh := fetchDim(r.fetchU8(data, seg1, seg2), zoom)

	x1 := x - bbw/2
	x2 := x + bbw/2
	y1 := y - bbh/2
	y2 := y + bbh/2

	if x1 > 319 || x2 < 0 || y1 > 199 || y2 < 0 {
		return
	}

	var qs quadStrip
	num := r.fetchU8(data, seg1, seg2)

	if num&1 != 0 {
		logger.Warn("unexpected number of polygon vertices", "num", num)
		return
	}

	for i := uint8(0); i < num; i++ {
		vx := x1 + fetchDim(r.fetchU8(data, seg1, seg2), zoom)
		vy := y1 + fetchDim(r.fetchU8(data, seg1, seg2), zoom)
		qs.push(Vertex{X: vx, Y: vy})
	}

	fb := r.fbXlat[0]
	if num == 4 && bbw == 0 && bbh <= 1 {
		r.drawPoint(fb, uint16(x), uint16(y), color)
	} else {
		r.drawPolygon(fb, &qs, color)
	}
}

func (r *Renderer) drawShapeParts(data []byte, seg1, seg2 int, x, y int16, zoom uint16) {
	x -= fetchDim(r.fetchU8(data, seg1, seg2), zoom)
	y -= fetchDim(r.fetchU8(data, seg1, seg2), zoom)
	n := r.fetchU8(data, seg1, seg2)

	for i := 0; i <= int(n); i++ {
		offset := r.fetchU16(data, seg1, seg2)
		px := x + fetchDim(r.fetchU8(data, seg1, seg2), zoom)
		py := y + fetchDim(r.fetchU8(data, seg1, seg2), zoom)

		color := uint8(0xFF)
		if offset&0x8000 != 0 {
			hi := r.fetchU8(data, seg1, seg2)
			_ = r.fetchU8(data, seg1, seg2) // low byte, unused like the reference
			color = hi & 0x7F
		}

		oldDC := r.dc
		r.dc = offset << 1
		r.DrawShape(data, seg1, seg2, px, py, zoom, color)
		r.dc = oldDC
	}
}
