package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestGame(t *testing.T, code []byte) *Game {
	t.Helper()
	pager := &Pager{currentPart: -1}
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

func TestOpMovConstSetsRegisterAndAdvancesPC(t *testing.T) {
	g := newTestGame(t, []byte{0x05, 0x01, 0x2C}) // dst=5, val=0x012C (300)
	g.opMovConst()
	require.EqualValues(t, 300, g.vm.regs[5])
	require.EqualValues(t, 3, g.vm.pc)
}

func TestOpAddConstWrapsOnOverflow(t *testing.T) {
	g := newTestGame(t, []byte{0x00, 0x00, 0x01})
	g.vm.regs[0] = 32767
	g.opAddConst()
	require.EqualValues(t, -32768, g.vm.regs[0])
}

func TestOpJmpIfVarLoopsUntilZero(t *testing.T) {
	g := newTestGame(t, []byte{0x02, 0x12, 0x34})
	g.vm.regs[2] = 1
	g.opJmpIfVar()
	require.EqualValues(t, 0, g.vm.regs[2])
	require.EqualValues(t, 3, g.vm.pc, "register hit zero, branch not taken")

	g.vm.pc = 0
	g.vm.regs[2] = 2
	g.opJmpIfVar()
	require.EqualValues(t, 0x1234, g.vm.pc, "register still nonzero, branch taken")
}

func TestOpCondJmpBypassesProtectionOnce(t *testing.T) {
	// op=0x80 (var-vs-reg compare), var_id=0x29, arg reg=0x1E, target pc.
	g := newTestGame(t, []byte{0x80, 0x29, 0x1E, 0x00, 0x10})
	g.currentPart = 16000
	g.bypassProtection = true
	g.vm.regs[0x29] = 1
	g.vm.regs[0x1E] = 0xAB
	g.vm.regs[0x1F] = 0xCD

	g.opCondJmp()

	require.EqualValues(t, 0x10, g.vm.pc, "forced test=true takes the branch")
	require.EqualValues(t, 0xAB, g.vm.regs[0x29])
	require.EqualValues(t, 0xCD, g.vm.regs[0x2A])
	require.EqualValues(t, 6, g.vm.regs[0x32])
	require.EqualValues(t, 20, g.vm.regs[0x64])
}

func TestOpChangeTasksRejectsInvertedRange(t *testing.T) {
	g := newTestGame(t, []byte{5, 2, 1})
	g.opChangeTasks()
	require.False(t, g.vm.pendingTasks[2].frozen)
	require.False(t, g.vm.pendingTasks[5].frozen)
}

func TestOpChangeTasksFreezesRange(t *testing.T) {
	g := newTestGame(t, []byte{1, 3, 1})
	g.opChangeTasks()
	for i := 1; i <= 3; i++ {
		require.True(t, g.vm.pendingTasks[i].frozen)
	}
	require.False(t, g.vm.pendingTasks[4].frozen)
}

func TestStageTasksAppliesPendingPCAndHaltSentinel(t *testing.T) {
	g := newTestGame(t, nil)
	g.vm.pendingTasks[1].pc = 0x1234
	g.vm.pendingTasks[2].pc = preHaltPC
	g.vm.tasks[2].pc = 0x5555

	g.stageTasks()

	require.EqualValues(t, 0x1234, g.vm.tasks[1].pc)
	require.EqualValues(t, haltPC, g.vm.tasks[2].pc)
	require.EqualValues(t, haltPC, g.vm.pendingTasks[1].pc, "pending slot resets after being applied")
}

func TestCheckTaskIDRejectsOutOfRange(t *testing.T) {
	_, ok := checkTaskID(200)
	require.False(t, ok)
	id, ok := checkTaskID(10)
	require.True(t, ok)
	require.Equal(t, 10, id)
}

func TestUpdateInputTranslatesAxesAndActionMask(t *testing.T) {
	g := newTestGame(t, nil)
	g.updateInput(InputState{Right: true, Down: true, Button: true})

	require.EqualValues(t, 1, g.vm.regs[regHeroPosLeftRight])
	require.EqualValues(t, 1, g.vm.regs[regHeroPosUpDown])
	require.EqualValues(t, 1, g.vm.regs[regHeroAction])
	require.EqualValues(t, 0x05, g.vm.regs[regHeroPosMask]) // right(1) | down(4)
	require.EqualValues(t, 0x85, g.vm.regs[regHeroActionPosMask])
}

func TestUpdateInputOnlyTranslatesKeycharOnPart16009(t *testing.T) {
	g := newTestGame(t, nil)
	g.currentPart = 16001
	g.updateInput(InputState{LastChar: 'a'})
	require.EqualValues(t, 0, g.vm.regs[regLastKeychar])

	g.currentPart = 16009
	g.updateInput(InputState{LastChar: 'a'})
	require.EqualValues(t, 'a'&^0x20, g.vm.regs[regLastKeychar])
}
