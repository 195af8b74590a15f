// strings.go - localized on-screen text table, looked up by the numeric
// string id the DRAW_STRING opcode carries as an operand.
//
// The original's STRINGS_EN table is asset data (hundreds of entries
// embedded in the executable) absent from this codebase's source tree. A
// small representative table stands in — enough to exercise DrawString's
// line-wrap and glyph-lookup path end to end — not a full reproduction of
// the game's dialogue and menu text.

package main

var stringTable = map[uint16]string{
	0x001: "ANOTHER WORLD",
	0x002: "BY ERIC CHAHI",
	0x005: "ENGINE ROOM",
	0x006: "THE ROOM",
	0x00A: "PRESS THE BUTTON\nOR RUN AWAY",
	0x0C8: "LOADING...",
}

// lookupString resolves a string id to its text, reporting ok=false for
// anything outside the representative table.
func lookupString(id uint16) (string, bool) {
	s, ok := stringTable[id]
	return s, ok
}
