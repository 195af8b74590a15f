// vm.go - the 256-register, 64-task cooperative bytecode interpreter that
// drives every scene. Each task is a tiny coroutine with its own program
// counter; run_tasks round-robins them once per display frame, and a task
// runs until it executes a YIELD/HALT opcode (an invalid opcode also halts
// it). A RET with an empty call stack is logged and execution continues.

package main

import (
	"math/rand"
	"time"
)

const (
	callStackSize = 64
	taskCount     = 64

	haltPC    uint16 = 0xFFFF
	preHaltPC uint16 = 0xFFFE
)

// register IDs the VM and the host-facing input/sync plumbing share with
// the bytecode.
const (
	regRandomSeed        = 0x3C
	regScreenNum         = 0x67
	regLastKeychar       = 0xDA
	regHeroPosUpDown     = 0xE5
	regMusicSync         = 0xF4
	regScrollY           = 0xF9
	regHeroAction        = 0xFA
	regHeroPosJumpDown   = 0xFB
	regHeroPosLeftRight  = 0xFC
	regHeroPosMask       = 0xFD
	regHeroActionPosMask = 0xFE
	regPauseSlices       = 0xFF
)

type vmTask struct {
	pc     uint16
	frozen bool
}

// VM holds every piece of state that is local to the bytecode interpreter
// itself; everything it needs from the rest of the game (resources,
// renderer, audio) is reached through the Game it is embedded in.
type VM struct {
	regs      [256]int16
	callStack [callStackSize]uint16
	pc        uint16
	sp        uint8

	tasks        [taskCount]vmTask
	pendingTasks [taskCount]vmTask

	needsYield bool

	lastSwapTime time.Time
}

// NewVM builds a VM with its tasks halted and the handful of registers the
// game reads before any bytecode has run seeded, including the bank-0
// protection-check bypass values.
func NewVM() *VM {
	vm := &VM{lastSwapTime: time.Now()}
	for i := range vm.tasks {
		vm.tasks[i].pc = haltPC
		vm.pendingTasks[i].pc = haltPC
	}

	vm.regs[regRandomSeed] = int16(rand.Uint32())
	vm.regs[0xBC] = 0x10
	vm.regs[0xC6] = 0x80
	vm.regs[0xF2] = 4000
	vm.regs[0xDC] = 33

	return vm
}

func (vm *VM) SyncMusic(val uint16) { vm.regs[regMusicSync] = int16(val) }

func isValidKeychar(c byte) bool {
	return c == 0x08 || (c >= 'a' && c <= 'z')
}

func makeDir(ul, rd bool) int16 {
	switch {
	case ul:
		return -1
	case rd:
		return 1
	default:
		return 0
	}
}

// updateInput copies one frame's InputState into the registers the
// bytecode polls for movement, the action button and (on the code-entry
// scene only) raw keystrokes.
func (g *Game) updateInput(in InputState) {
	regs := &g.vm.regs

	if g.currentPart == 16009 {
		c := byte(0)
		if in.LastChar != 0 {
			b := byte(in.LastChar)
			if isValidKeychar(b) {
				c = b &^ 0x20
			}
		}
		regs[regLastKeychar] = int16(c)
	}

	regs[regHeroPosLeftRight] = makeDir(in.Left, in.Right)
	regs[regHeroPosUpDown] = makeDir(in.Up, in.Down)
	regs[regHeroPosJumpDown] = makeDir(in.Up, in.Down)

	var mask uint8
	if in.Right {
		mask |= 1
	}
	if in.Left {
		mask |= 2
	}
	if in.Down {
		mask |= 4
	}
	if in.Up {
		mask |= 8
	}

	regs[regHeroPosMask] = int16(mask)
	regs[regHeroAction] = b2i16(in.Button)
	actionMask := mask
	if in.Button {
		actionMask |= 0x80
	}
	regs[regHeroActionPosMask] = int16(actionMask)
}

func b2i16(b bool) int16 {
	if b {
		return 1
	}
	return 0
}

func (g *Game) fetchU8() uint8 {
	offset := int(g.vm.pc) + g.pager.SegCode()
	b := g.pager.Data()[offset]
	g.vm.pc++
	return b
}

func (g *Game) fetchU16() uint16 {
	hi := uint16(g.fetchU8())
	lo := uint16(g.fetchU8())
	return (hi << 8) | lo
}

func (g *Game) fetchI16() int16 { return int16(g.fetchU16()) }

func (g *Game) fetchIndex8() int { return int(g.fetchU8()) }

func (g *Game) opMovConst() {
	dst := g.fetchIndex8()
	val := g.fetchI16()
	g.vm.regs[dst] = val
}

func (g *Game) opMov() {
	dst := g.fetchIndex8()
	src := g.fetchIndex8()
	g.vm.regs[dst] = g.vm.regs[src]
}

func (g *Game) opAddConst() {
	if g.vm.pc == 0x6D48 && g.currentPart == 16006 && !g.loopingGunQuirk {
		g.loopingGunQuirk = true
		logger.Warn("hack for non-stop looping gun sound bug")
		g.playSoundShim(0x5B, 1, 64, 1)
	}

	dst := g.fetchIndex8()
	val := g.fetchI16()
	g.vm.regs[dst] += val
}

func (g *Game) opAdd() {
	dst := g.fetchIndex8()
	src := g.fetchIndex8()
	g.vm.regs[dst] += g.vm.regs[src]
}

func (g *Game) opSub() {
	dst := g.fetchIndex8()
	src := g.fetchIndex8()
	g.vm.regs[dst] -= g.vm.regs[src]
}

func (g *Game) opAndConst() {
	dst := g.fetchIndex8()
	val := g.fetchI16()
	g.vm.regs[dst] &= val
}

func (g *Game) opOrConst() {
	dst := g.fetchIndex8()
	val := g.fetchI16()
	g.vm.regs[dst] |= val
}

func (g *Game) opShlConst() {
	dst := g.fetchIndex8()
	val := g.fetchI16()
	g.vm.regs[dst] <<= uint16(val)
}

func (g *Game) opShrConst() {
	dst := g.fetchIndex8()
	val := g.fetchU16()
	g.vm.regs[dst] = int16(uint16(g.vm.regs[dst]) >> val)
}

func (g *Game) opCall() {
	if g.vm.sp >= callStackSize {
		logger.Error("call-stack overflow")
		return
	}
	newPC := g.fetchU16()
	g.vm.callStack[g.vm.sp] = g.vm.pc
	g.vm.pc = newPC
	g.vm.sp++
}

func (g *Game) opRet() {
	if g.vm.sp == 0 {
		logger.Error("call-stack underflow")
		return
	}
	g.vm.sp--
	g.vm.pc = g.vm.callStack[g.vm.sp]
}

func (g *Game) opJmp() { g.vm.pc = g.fetchU16() }

func (g *Game) opJmpIfVar() {
	i := g.fetchIndex8()
	newPC := g.fetchU16()
	g.vm.regs[i]--
	if g.vm.regs[i] != 0 {
		g.vm.pc = newPC
	}
}

func (g *Game) opCondJmp() {
	op := g.fetchU8()

	varID := g.fetchIndex8()
	v := g.vm.regs[varID]

	var arg int16
	switch {
	case op&0x80 != 0:
		arg = g.vm.regs[g.fetchIndex8()]
	case op&0x40 != 0:
		arg = g.fetchI16()
	default:
		arg = int16(g.fetchU8())
	}

	newPC := g.fetchU16()

	var test bool
	switch op & 7 {
	case 0:
		test = v == arg
	case 1:
		test = v != arg
	case 2:
		test = v > arg
	case 3:
		test = v >= arg
	case 4:
		test = v < arg
	case 5:
		test = v <= arg
	default:
		logger.Error("invalid condition in jump", "op", op)
		return
	}

	if varID == 0x29 && op&0x80 != 0 && g.currentPart == 16000 && g.bypassProtection {
		logger.Info("bypassing protection")
		test = true
		g.vm.regs[0x29] = g.vm.regs[0x1E]
		g.vm.regs[0x2A] = g.vm.regs[0x1F]
		g.vm.regs[0x2B] = g.vm.regs[0x20]
		g.vm.regs[0x2C] = g.vm.regs[0x21]
		g.vm.regs[0x32] = 6
		g.vm.regs[0x64] = 20
	}

	if test {
		g.vm.pc = newPC

		if varID == regScreenNum && (g.screenNum == nil || *g.screenNum != v) {
			g.screenNum = &v
			g.fixupPalAfterChangeScreen(v)
		}
	}
}

func checkTaskID(id uint8) (int, bool) {
	if int(id) >= taskCount {
		logger.Error("invalid task ID", "id", id)
		return 0, false
	}
	return int(id), true
}

func (g *Game) opInstallTask() {
	id, ok := checkTaskID(g.fetchU8())
	pc := g.fetchU16()
	if !ok {
		return
	}
	g.vm.pendingTasks[id].pc = pc
}

func (g *Game) opRemoveTask() {
	g.vm.pc = haltPC
	g.vm.needsYield = true
}

func (g *Game) opYieldTask() { g.vm.needsYield = true }

func (g *Game) opChangeTasks() {
	begin, ok1 := checkTaskID(g.fetchU8())
	end, ok2 := checkTaskID(g.fetchU8() & 0x3F)
	action := g.fetchU8()
	if !ok1 || !ok2 {
		return
	}
	if begin > end {
		logger.Warn("invalid task range in vec instruction", "begin", begin, "end", end)
		return
	}

	for i := begin; i <= end; i++ {
		if action == 2 {
			g.vm.pendingTasks[i].pc = preHaltPC
		} else {
			g.vm.pendingTasks[i].frozen = action != 0
		}
	}
}

// stageTasks applies a next_part switch (if one is pending) and copies
// each task's pending program counter/frozen state into its live slot,
// ready for the next run_tasks pass.
func (g *Game) stageTasks() {
	if g.nextPart != 0 {
		part := g.nextPart
		g.nextPart = 0
		g.restartAt(part, -1)
	}

	for i := range g.vm.tasks {
		task := &g.vm.tasks[i]
		pending := &g.vm.pendingTasks[i]
		task.frozen = pending.frozen

		if pending.pc != haltPC {
			if pending.pc == preHaltPC {
				task.pc = haltPC
			} else {
				task.pc = pending.pc
			}
			pending.pc = haltPC
		}
	}
}

// restartAt tears down the current part and loads part, optionally
// seeding the protagonist's starting register (pos) and resetting every
// task to halted except task 0, which starts at pc 0.
func (g *Game) restartAt(part uint16, pos int16) {
	g.audio.StopSoundAndMusic(g.sink)

	g.vm.regs[0xE4] = 20
	if part == 16000 {
		g.vm.regs[0x54] = 0x81
	}

	if err := g.pager.SetupPart(int(part)); err != nil {
		logger.Error("setup part failed", "part", part, "err", err)
		return
	}
	g.currentPart = int(part)

	for i := range g.vm.tasks {
		g.vm.tasks[i] = vmTask{pc: haltPC}
		g.vm.pendingTasks[i] = vmTask{pc: haltPC}
	}
	g.vm.tasks[0].pc = 0
	g.screenNum = nil

	if pos >= 0 {
		g.vm.regs[0] = pos
	}

	if g.renderer.NeedsPalFixup() && part == 16009 {
		g.loadPalMem(5)
	}

	g.vm.lastSwapTime = time.Now()
}

// runTasks gives every unfrozen, non-halted task one slice: it executes
// bytecode from that task's saved pc until the task yields, halts or
// removes itself, then saves its (possibly new) pc back.
func (g *Game) runTasks() {
	for id := 0; id < taskCount; id++ {
		if g.vm.tasks[id].pc == haltPC || g.vm.tasks[id].frozen {
			continue
		}

		g.vm.pc = g.vm.tasks[id].pc
		g.vm.sp = 0
		g.vm.needsYield = false
		g.executeTask()
		g.vm.tasks[id].pc = g.vm.pc
	}
}

func (g *Game) executeTask() {
	for !g.vm.needsYield {
		opcode := g.fetchU8()
		if opcode&0xC0 != 0 {
			g.opDrawShape(opcode)
			continue
		}

		switch opcode {
		case 0x00:
			g.opMovConst()
		case 0x01:
			g.opMov()
		case 0x02:
			g.opAdd()
		case 0x03:
			g.opAddConst()
		case 0x04:
			g.opCall()
		case 0x05:
			g.opRet()
		case 0x06:
			g.opYieldTask()
		case 0x07:
			g.opJmp()
		case 0x08:
			g.opInstallTask()
		case 0x09:
			g.opJmpIfVar()
		case 0x0A:
			g.opCondJmp()
		case 0x0B:
			g.opChangePal()
		case 0x0C:
			g.opChangeTasks()
		case 0x0D:
			g.opSelectPage()
		case 0x0E:
			g.opFillPage()
		case 0x0F:
			g.opCopyPage()
		case 0x10:
			g.opUpdateDisplay()
		case 0x11:
			g.opRemoveTask()
		case 0x12:
			g.opDrawString()
		case 0x13:
			g.opSub()
		case 0x14:
			g.opAndConst()
		case 0x15:
			g.opOrConst()
		case 0x16:
			g.opShlConst()
		case 0x17:
			g.opShrConst()
		case 0x18:
			g.opPlaySound()
		case 0x19:
			g.opUpdateResources()
		case 0x1A:
			g.opPlayMusic()
		default:
			logger.Error("invalid opcode, halting task", "opcode", opcode)
			g.vm.pc = haltPC
			g.vm.needsYield = true
		}
	}
}

func (g *Game) opSelectPage() {
	n := g.fetchU8()
	g.renderer.SelectPage(n)
}

func (g *Game) opFillPage() {
	n := g.fetchU8()
	color := g.fetchU8()
	g.renderer.FillPage(n, color)
}

func (g *Game) opCopyPage() {
	src := g.fetchU8()
	dst := g.fetchU8()
	g.renderer.CopyPage(src, dst, g.vm.regs[regScrollY])
}

func (g *Game) opDrawShape(opcode uint8) {
	if opcode&0x80 != 0 {
		offset := ((uint16(opcode) << 8) | uint16(g.fetchU8())) << 1

		x := int16(g.fetchU8())
		y := int16(g.fetchU8())

		if h := y - 199; h > 0 {
			y = 199
			x += h
		}

		g.renderer.SetDC(offset, false)
		g.renderer.DrawShape(g.pager.Data(), g.pager.SegVideo1(), g.pager.SegVideo2(), x, y, 0x40, 0xFF)
		return
	}

	offset := g.fetchU16() << 1
	xb := g.fetchU8()
	var x int16
	switch {
	case opcode&0x20 != 0:
		x = int16(xb) | int16(opcode&0x10)<<4
	case opcode&0x10 != 0:
		x = g.vm.regs[xb]
	default:
		x = (int16(xb) << 8) | int16(g.fetchU8())
	}

	yb := g.fetchU8()
	var y int16
	switch {
	case opcode&0x08 != 0:
		y = int16(yb)
	case opcode&0x04 != 0:
		y = g.vm.regs[yb]
	default:
		y = (int16(yb) << 8) | int16(g.fetchU8())
	}

	useSeg2 := false
	zb := g.fetchU8()
	var zoom uint16
	switch {
	case opcode&0x02 != 0 && opcode&0x01 != 0:
		useSeg2 = true
		g.vm.pc--
		zoom = 0x40
	case opcode&0x02 != 0:
		zoom = uint16(zb)
	case opcode&0x01 != 0:
		zoom = uint16(g.vm.regs[zb])
	default:
		g.vm.pc--
		zoom = 0x40
	}

	g.renderer.SetDC(offset, useSeg2)
	seg1, seg2 := g.pager.SegVideo1(), g.pager.SegVideo2()
	g.renderer.DrawShape(g.pager.Data(), seg1, seg2, x, y, zoom, 0xFF)
}

func (g *Game) opDrawString() {
	strID := g.fetchU16()
	x := uint16(g.fetchU8())
	y := uint16(g.fetchU8())
	color := g.fetchU8()
	g.renderer.DrawString(x, y, strID, color)
}

func (g *Game) opChangePal() {
	num := g.fetchU8()
	_ = g.fetchU8() // unused second byte, kept for bytecode-stream alignment

	skip := g.renderer.NeedsPalFixup() && g.currentPart == 16001 && (num == 10 || num == 16)
	if !skip {
		g.nextPal = int16(num) + 1 // +1 so zero means "none pending"
	}
}

func (g *Game) takeNextPal() (uint8, bool) {
	if g.nextPal == 0 {
		return 0, false
	}
	num := uint8(g.nextPal - 1)
	g.nextPal = 0
	return num, true
}

func (g *Game) opPlaySound() {
	resource := g.fetchU16()
	freq := g.fetchU8()
	volume := g.fetchU8()
	channel := g.fetchU8()
	g.playSoundShim(resource, freq, volume, channel)
}

func (g *Game) playSoundShim(resource uint16, freq, volume, channel uint8) {
	if volume == 0 {
		g.audio.StopSound(g.sink, channel&3)
		return
	}

	if volume > 0x3F {
		volume = 0x3F
	}
	address, ok := g.pager.AddressOfEntry(resource)
	if !ok {
		return
	}

	hz := uint16(0)
	if int(freq) < len(frequencyTable) {
		hz = frequencyTable[freq]
	}
	g.audio.PlaySound(g.sink, channel&3, address, hz, volume)
}

func (g *Game) opPlayMusic() {
	resource := g.fetchU16()
	delay := g.fetchU16()
	pos := g.fetchU8()

	if resource != 0 {
		g.audio.Seek(resource, delay, pos)
	} else {
		g.audio.SetDelay(delay)
	}
}

func (g *Game) opUpdateResources() {
	num := g.fetchU16()
	switch {
	case num == 0:
		g.audio.StopSoundAndMusic(g.sink)
		g.pager.InvalidateRes()
		g.renderer.InvalidatePalNum()
	case num >= 16000:
		g.nextPart = num
	default:
		if err := g.pager.LoadEntry(int(num)); err != nil {
			logger.Warn("update resources: load failed", "res", num, "err", err)
		}
	}
}

const vmHz = 50

func (g *Game) opUpdateDisplay() {
	page := g.fetchU8()

	fb := g.renderer.SwapPages(page)

	if num, ok := g.takeNextPal(); ok {
		g.loadPalMem(num)
	}

	pixels := make([]uint16, fbSize)
	g.renderer.ReadPixels(fb, pixels)
	g.sink.PresentFrame(pixels)

	elapsed := time.Since(g.vm.lastSwapTime)
	delay := elapsed.Milliseconds()
	for i := int16(0); i < g.vm.regs[regPauseSlices]; i++ {
		g.produceMusic()
		delay -= 1000 / vmHz
		if delay < 0 {
			g.sink.SleepMs(int(-delay))
			delay = 0
		}
	}

	g.vm.lastSwapTime = time.Now()
	g.vm.regs[0xF7] = 0
}

func (g *Game) fixupPalAfterChangeScreen(screen int16) {
	var pal uint8
	switch {
	case g.currentPart == 16004 && screen == 0x47:
		pal = 8
	case g.currentPart == 16006 && screen == 0x4A:
		pal = 1
	default:
		return
	}
	g.loadPalMem(pal)
}
