// data.go - small constant tables the VM's opcodes need that the original
// game baked straight into its code segment as raw bytes. FREQUENCY_TABLE
// is one: the SOUND opcode's one-byte frequency index maps through it to
// a playback rate. Its 40 bit-exact values are part of the copyrighted
// executable and absent from the available sources, so this rebuilds a
// monotonic table from the same Amiga-clock/period relationship the
// tracker mixer already uses (amigaClock / (period*2)) rather than
// claiming bit-exact asset values.
package main

const amigaClock = 7159092

var frequencyTable = buildFrequencyTable()

func buildFrequencyTable() [40]uint16 {
	const topPeriod = 0x0550
	const bottomPeriod = 0x0140
	var t [40]uint16
	for i := range t {
		period := topPeriod - (topPeriod-bottomPeriod)*i/(len(t)-1)
		t[i] = uint16(amigaClock / (period * 2))
	}
	return t
}
