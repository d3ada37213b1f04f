package selftest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// circuit simulates the DCC source on one side and the relay pair joining
// it to the other side.
type circuit struct {
	source     bool
	sourceSide int
	r1, r2     bool
	stuck      bool // relays never isolate
	open       bool // relays never join
	commands   [][2]bool
}

func (c *circuit) SetRelays(r1, r2 bool) {
	c.r1, c.r2 = r1, r2
	c.commands = append(c.commands, [2]bool{r1, r2})
}

func (c *circuit) Sides() (bool, bool) {
	joined := (c.r1 && c.r2 && !c.open) || c.stuck
	other := c.source && joined
	if c.sourceSide == 2 {
		return other, c.source
	}
	return c.source, other
}

type listener struct {
	changed, finished, failed int
}

func (l *listener) SelfTestChanged()  { l.changed++ }
func (l *listener) SelfTestFinished() { l.finished++ }
func (l *listener) SelfTestFailed()   { l.failed++ }

func newEngine(c *circuit) (*Engine, *listener) {
	l := &listener{}
	return New(c, c, l), l
}

func TestNewEngineState(t *testing.T) {
	e, _ := newEngine(&circuit{})

	assert.Equal(t, StateNotYetRun, e.State())
	assert.Equal(t, StepStopped, e.Step())
	assert.Equal(t, ErrorNone, e.Error())
	assert.False(t, e.Running())
}

func TestStartRejectedWithoutActivity(t *testing.T) {
	c := &circuit{}
	e, l := newEngine(c)

	err := e.Start()

	assert.ErrorIs(t, err, ErrNoActivity)
	assert.Equal(t, StateNotYetRun, e.State())
	assert.Empty(t, c.commands)
	assert.Zero(t, l.changed)
	assert.False(t, e.Ready())
}

func TestStartRejectedWhileInProgress(t *testing.T) {
	c := &circuit{source: true}
	e, _ := newEngine(c)
	require.NoError(t, e.Start())

	assert.ErrorIs(t, e.Start(), ErrInProgress)
	assert.False(t, e.Ready())
}

func TestStartEntersInitTurnoff(t *testing.T) {
	c := &circuit{source: true, r1: true, r2: true}
	e, l := newEngine(c)

	require.True(t, e.Ready())
	require.NoError(t, e.Start())

	assert.Equal(t, StateInProgress, e.State())
	assert.Equal(t, StepInitTurnoff, e.Step())
	assert.Equal(t, uint32(0), e.Snapshot().Ticks)
	assert.Equal(t, [][2]bool{{false, false}}, c.commands)
	assert.Equal(t, 1, l.changed)
}

func runToEnd(e *Engine, max int) []Step {
	steps := []Step{e.Step()}
	for i := 0; i < max && e.Running(); i++ {
		e.Update()
		if e.Step() != steps[len(steps)-1] {
			steps = append(steps, e.Step())
		}
	}
	return steps
}

func TestFullSequence(t *testing.T) {
	for _, side := range []int{1, 2} {
		t.Run(map[int]string{1: "source on side 1", 2: "source on side 2"}[side], func(t *testing.T) {
			c := &circuit{source: true, sourceSide: side}
			e, l := newEngine(c)
			require.NoError(t, e.Start())

			steps := runToEnd(e, 50)

			assert.Equal(t, []Step{
				StepInitTurnoff,
				StepWaitForSingleSide,
				StepBothOnWait,
				StepR1OffWait,
				StepR1OnWait,
				StepR2OffWait,
				StepR2OnWait,
				StepFinished,
			}, steps)
			assert.Equal(t, StateFinished, e.State())
			assert.Equal(t, ErrorNone, e.Error())
			assert.Equal(t, 1, l.finished)
			assert.Zero(t, l.failed)

			assert.Equal(t, [][2]bool{
				{false, false}, // start: open both
				{true, true},   // single side seen: close both
				{false, true},  // both seen: open relay1
				{true, true},   // single side seen: close both
				{true, false},  // both seen: open relay2
				{true, true},   // single side seen: close both
			}, c.commands)
		})
	}
}

func TestStepsAdvanceOnePerTick(t *testing.T) {
	c := &circuit{source: true}
	e, _ := newEngine(c)
	require.NoError(t, e.Start())

	for i := 0; i < 7; i++ {
		e.Update()
	}

	assert.Equal(t, StepFinished, e.Step())
	assert.Equal(t, StateFinished, e.State())
}

func TestStuckRelayFails(t *testing.T) {
	c := &circuit{source: true, stuck: true}
	e, l := newEngine(c)
	require.NoError(t, e.Start())

	e.Update() // InitTurnoff -> WaitForSingleSide
	require.Equal(t, StepWaitForSingleSide, e.Step())

	for i := 0; i < StepTimeout-1; i++ {
		e.Update()
	}
	assert.Equal(t, StateInProgress, e.State())
	assert.True(t, e.Warning())

	e.Update()
	assert.Equal(t, StateFail, e.State())
	assert.Equal(t, ErrorDCCNotDisappeared, e.Error())
	assert.Equal(t, StepWaitForSingleSide, e.Step(), "step kept for diagnostics")
	assert.Equal(t, 1, l.failed)
	assert.Zero(t, l.finished)
}

func TestOpenRelayFails(t *testing.T) {
	c := &circuit{source: true, open: true}
	e, l := newEngine(c)
	require.NoError(t, e.Start())

	runToEnd(e, 50)

	assert.Equal(t, StateFail, e.State())
	assert.Equal(t, StepBothOnWait, e.Step())
	assert.Equal(t, ErrorDCCNotAppeared, e.Error())
	assert.Equal(t, 1, l.failed)
}

func TestWarningRaisedOnce(t *testing.T) {
	c := &circuit{source: true, stuck: true}
	e, l := newEngine(c)
	require.NoError(t, e.Start())
	e.Update()
	changed := l.changed

	e.Update()
	assert.False(t, e.Warning())
	e.Update()
	assert.True(t, e.Warning())
	assert.Equal(t, changed+1, l.changed)

	e.Update()
	assert.Equal(t, changed+1, l.changed)
}

func TestLosingAllSidesInterrupts(t *testing.T) {
	c := &circuit{source: true}
	e, l := newEngine(c)
	require.NoError(t, e.Start())
	e.Update()
	e.Update()
	require.Equal(t, StepBothOnWait, e.Step())

	c.source = false
	e.Update()

	assert.Equal(t, StateInterrupted, e.State())
	assert.Equal(t, StepBothOnWait, e.Step())
	assert.Zero(t, l.failed)
	assert.Zero(t, l.finished)
}

func TestInterruptedNeverFailsLater(t *testing.T) {
	c := &circuit{source: true, stuck: true}
	e, l := newEngine(c)
	require.NoError(t, e.Start())
	e.Update()
	c.source = false

	for i := 0; i < 3*StepTimeout; i++ {
		e.Update()
	}

	assert.Equal(t, StateInterrupted, e.State())
	assert.Zero(t, l.failed)
}

func TestInterruptOnlyWhileRunning(t *testing.T) {
	c := &circuit{source: true}
	e, l := newEngine(c)

	e.Interrupt()
	assert.Equal(t, StateNotYetRun, e.State())
	assert.Zero(t, l.changed)

	require.NoError(t, e.Start())
	e.Interrupt()
	assert.Equal(t, StateInterrupted, e.State())

	changed := l.changed
	e.Interrupt()
	assert.Equal(t, changed, l.changed)
}

func TestRestartAfterTerminalStates(t *testing.T) {
	c := &circuit{source: true, stuck: true}
	e, _ := newEngine(c)
	require.NoError(t, e.Start())
	runToEnd(e, 50)
	require.Equal(t, StateFail, e.State())

	c.stuck = false
	require.NoError(t, e.Start(), "a finished run does not block the next one")
	assert.Equal(t, StepInitTurnoff, e.Step())
	assert.Equal(t, ErrorNone, e.Error())
	assert.False(t, e.Warning())

	runToEnd(e, 50)
	assert.Equal(t, StateFinished, e.State())

	require.NoError(t, e.Start())
	assert.Equal(t, StateInProgress, e.State())
}

func TestUpdateIdleIsNoop(t *testing.T) {
	c := &circuit{source: true}
	e, l := newEngine(c)

	e.Update()

	assert.Equal(t, StateNotYetRun, e.State())
	assert.Zero(t, l.changed)
	assert.Empty(t, c.commands)
}

func TestStringers(t *testing.T) {
	assert.Equal(t, "R2_ON_WAIT", StepR2OnWait.String())
	assert.Equal(t, "UNKNOWN", Step(42).String())
	assert.Equal(t, "INTERRUPTED", StateInterrupted.String())
	assert.Equal(t, "UNKNOWN", State(9).String())
	assert.Equal(t, "DCC_NOT_APPEARED", ErrorDCCNotAppeared.String())
	assert.Equal(t, "UNKNOWN", Error(7).String())
}
