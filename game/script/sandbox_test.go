package script

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kasuganosora/dungeonfighter/game/battle"
)

func nop() *zap.Logger { l, _ := zap.NewDevelopment(); return l }

func newSandbox(t *testing.T) *Sandbox {
	t.Helper()
	return NewSandbox(2, 200*time.Millisecond, nop())
}

func TestSandbox_BasicArithmetic(t *testing.T) {
	sb := newSandbox(t)
	out, err := sb.Eval(context.Background(), "1 + 2", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), out)
}

func TestSandbox_ReturnString(t *testing.T) {
	sb := newSandbox(t)
	out, err := sb.Eval(context.Background(), `"hello"`, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestSandbox_NullResult(t *testing.T) {
	sb := newSandbox(t)
	out, err := sb.Eval(context.Background(), "null", nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestSandbox_UndefinedResult(t *testing.T) {
	sb := newSandbox(t)
	out, err := sb.Eval(context.Background(), "undefined", nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestSandbox_SyntaxError(t *testing.T) {
	sb := newSandbox(t)
	_, err := sb.Eval(context.Background(), "{{{{ broken", nil)
	assert.Error(t, err)
}

func TestSandbox_RuntimeException(t *testing.T) {
	sb := newSandbox(t)
	_, err := sb.Eval(context.Background(), `throw new Error("boom")`, nil)
	assert.Error(t, err)
}

func TestSandbox_Timeout(t *testing.T) {
	sb := NewSandbox(1, 50*time.Millisecond, nop())
	_, err := sb.Eval(context.Background(), `while(true){}`, nil)
	assert.True(t, errors.Is(err, ErrTimeout), "expected ErrTimeout, got %v", err)
}

func TestSandbox_ContextCancel(t *testing.T) {
	// Create a pool of size 1. Run a blocking script first to occupy the VM.
	// Then try to run with a cancelled context; no VM is available so ctx.Done wins.
	sb := NewSandbox(1, 5*time.Second, nop())

	// Occupy the sole VM with a long-running script in background.
	vmBusy := make(chan struct{})
	go func() {
		ctx2, cancel2 := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel2()
		close(vmBusy)
		sb.Eval(ctx2, `var i=0; while(i<1e8){i++;}`, nil)
	}()
	<-vmBusy
	time.Sleep(5 * time.Millisecond) // let the goroutine acquire the VM

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := sb.Eval(ctx, "1+1", nil)
	assert.Error(t, err)
}

func TestSandbox_MathFloor(t *testing.T) {
	sb := newSandbox(t)
	out, err := sb.Eval(context.Background(), "Math.floor(3.9)", nil)
	require.NoError(t, err)
	// goja exports whole-number float64 as int64
	assert.EqualValues(t, 3, out)
}

func TestSandbox_MathCeil(t *testing.T) {
	sb := newSandbox(t)
	out, err := sb.Eval(context.Background(), "Math.ceil(3.1)", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 4, out)
}

func TestSandbox_MathAbs(t *testing.T) {
	sb := newSandbox(t)
	out, err := sb.Eval(context.Background(), "Math.abs(-5)", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 5, out)
}

func TestSandbox_MathMax(t *testing.T) {
	sb := newSandbox(t)
	out, err := sb.Eval(context.Background(), "Math.max(3, 7)", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 7, out)
}

func TestSandbox_MathMin(t *testing.T) {
	sb := newSandbox(t)
	out, err := sb.Eval(context.Background(), "Math.min(3, 7)", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 3, out)
}

func TestSandbox_MathRound(t *testing.T) {
	sb := newSandbox(t)
	out, err := sb.Eval(context.Background(), "Math.round(2.6)", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), out)
}

func TestSandbox_BlockedRequire(t *testing.T) {
	sb := newSandbox(t)
	_, err := sb.Eval(context.Background(), "require('fs')", nil)
	assert.Error(t, err)
}

func TestSandbox_BlockedProcess(t *testing.T) {
	sb := newSandbox(t)
	_, err := sb.Eval(context.Background(), "process.exit(0)", nil)
	assert.Error(t, err)
}

func TestSandbox_BlockedEval(t *testing.T) {
	sb := newSandbox(t)
	_, err := sb.Eval(context.Background(), "eval('1+1')", nil)
	assert.Error(t, err)
}

func TestSandbox_EvalNumber_NestedVars(t *testing.T) {
	sb := newSandbox(t)
	vars := map[string]float64{"a_str": 20, "a_hp": 40, "b_armor": 10}
	out, err := sb.EvalNumber(context.Background(), "a.hp < 50 ? a.str * 3 - b.armor : a.str", vars)
	require.NoError(t, err)
	assert.Equal(t, 50.0, out)

	vars["a_hp"] = 80
	out, err = sb.EvalNumber(context.Background(), "a.hp < 50 ? a.str * 3 - b.armor : a.str", vars)
	require.NoError(t, err)
	assert.Equal(t, 20.0, out)
}

func TestSandbox_EvalNumber_FlatVar(t *testing.T) {
	sb := newSandbox(t)
	out, err := sb.EvalNumber(context.Background(), "level * 1.5", map[string]float64{"level": 3})
	require.NoError(t, err)
	assert.InDelta(t, 4.5, out, 1e-9)
}

func TestSandbox_EvalNumber_Statements(t *testing.T) {
	sb := newSandbox(t)
	src := `var d = a.str - b.armor / 2; if (d < 1) { d = 1; } d`
	out, err := sb.EvalNumber(context.Background(), src, map[string]float64{"a_str": 4, "b_armor": 10})
	require.NoError(t, err)
	assert.Equal(t, 1.0, out)
}

func TestSandbox_EvalNumber_NotNumeric(t *testing.T) {
	sb := newSandbox(t)
	_, err := sb.EvalNumber(context.Background(), `"ten"`, nil)
	assert.ErrorIs(t, err, ErrNotNumeric)

	_, err = sb.EvalNumber(context.Background(), `0/0`, nil)
	assert.ErrorIs(t, err, ErrNotNumeric)

	_, err = sb.EvalNumber(context.Background(), `undefined`, nil)
	assert.ErrorIs(t, err, ErrNotNumeric)
}

func TestSandbox_VarsDoNotLeakBetweenRuns(t *testing.T) {
	sb := NewSandbox(1, 200*time.Millisecond, nop())
	_, err := sb.EvalNumber(context.Background(), "a.str", map[string]float64{"a_str": 7})
	require.NoError(t, err)

	_, err = sb.EvalNumber(context.Background(), "a.str", nil)
	assert.Error(t, err)
}

func TestSandbox_VMPool_Concurrent(t *testing.T) {
	sb := NewSandbox(4, 200*time.Millisecond, nop())
	done := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func(n int) {
			_, err := sb.Eval(context.Background(), "1+1", nil)
			done <- err
		}(i)
	}
	for i := 0; i < 10; i++ {
		require.NoError(t, <-done)
	}
}

func TestNewVMPool_Defaults(t *testing.T) {
	p := NewVMPool(0, 0, nop()) // 0 falls back to 4 VMs and 500ms
	assert.NotNil(t, p)
}

func TestSandbox_ContextDeadlineInterrupts(t *testing.T) {
	sb := NewSandbox(1, 5*time.Second, nop())
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := sb.Eval(ctx, `while(true){}`, nil)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	// The tainted VM was replaced.
	out, err := sb.EvalNumber(context.Background(), "2*3", nil)
	require.NoError(t, err)
	assert.Equal(t, 6.0, out)
}

func TestSandbox_ServesBattleFormulaVars(t *testing.T) {
	var script battle.FormulaScript = newSandbox(t)
	a := &battle.FormulaStats{Stats: battle.Stats{Strength: 12, Level: 3}, Health: 30, MaxHealth: 60}
	b := &battle.FormulaStats{Stats: battle.Stats{Armor: 4}, Health: 50, MaxHealth: 50}

	out, err := script.EvalNumber(context.Background(),
		"a.hp / a.mhp <= 0.5 ? a.str * 2 - b.armor : a.str + a.level", battle.FormulaVars(a, b))
	require.NoError(t, err)
	assert.Equal(t, 20.0, out)
}
