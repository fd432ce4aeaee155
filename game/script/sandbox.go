// Package script evaluates damage formulas written as JavaScript expressions
// inside a pool of locked-down goja VMs.
package script

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// ErrTimeout is returned when a script exceeds the execution time limit.
var ErrTimeout = errors.New("script: execution timed out")

// ErrPanic is returned when the VM panics while running a script.
var ErrPanic = errors.New("script: uncaught exception")

// ErrNotNumeric is returned by EvalNumber when the script yields a non-number.
var ErrNotNumeric = errors.New("script: result is not a number")

// VMPool is a thread-safe pool of pre-initialised goja runtimes.
type VMPool struct {
	pool    chan *goja.Runtime
	timeout time.Duration
	logger  *zap.Logger
	size    int
}

// NewVMPool creates a VMPool with the given concurrency size and per-script timeout.
func NewVMPool(size int, timeout time.Duration, logger *zap.Logger) *VMPool {
	if size <= 0 {
		size = 4
	}
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &VMPool{
		pool:    make(chan *goja.Runtime, size),
		timeout: timeout,
		logger:  logger,
		size:    size,
	}
	for i := 0; i < size; i++ {
		p.pool <- newSafeVM()
	}
	return p
}

// Run executes src inside a pooled VM with vars bound as globals.
// A key "a_str" is exposed as a.str; keys without an underscore are bound
// directly. Returns the exported value of the last expression.
func (p *VMPool) Run(ctx context.Context, src string, vars map[string]float64) (interface{}, error) {
	select {
	case vm := <-p.pool:
		// returnToPool is cleared by runVM when the VM is tainted by an
		// interrupt and must be discarded.
		returnToPool := true
		defer func() {
			if returnToPool {
				p.pool <- vm
			}
		}()
		return p.runVM(ctx, vm, src, vars, &returnToPool)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *VMPool) runVM(ctx context.Context, vm *goja.Runtime, src string, vars map[string]float64, returnToPool *bool) (interface{}, error) {
	roots := bindVars(vm, vars)

	timeout := p.timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}
	timer := time.AfterFunc(timeout, func() {
		vm.Interrupt(ErrTimeout)
	})
	stop := context.AfterFunc(ctx, func() {
		vm.Interrupt(ErrTimeout)
	})
	defer func() {
		timerIdle := timer.Stop()
		ctxIdle := stop()
		if *returnToPool && !(timerIdle && ctxIdle) {
			// An interrupt may land after the script returned.
			*returnToPool = false
			p.pool <- newSafeVM()
		}
		if *returnToPool {
			unbindVars(vm, roots)
			vm.ClearInterrupt()
		}
	}()

	var result goja.Value
	var runErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				runErr = ErrPanic
			}
		}()
		result, runErr = vm.RunString(src)
	}()

	if runErr != nil {
		var interrupted *goja.InterruptedError
		if errors.As(runErr, &interrupted) {
			// VM is tainted after an interrupt; discard it and add a fresh one.
			*returnToPool = false
			p.pool <- newSafeVM()
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return nil, ErrTimeout
		}
		if ex, ok := runErr.(*goja.Exception); ok {
			return nil, errors.New(ex.Error())
		}
		return nil, runErr
	}

	if result == nil || goja.IsUndefined(result) || goja.IsNull(result) {
		return nil, nil
	}
	return result.Export(), nil
}

// bindVars installs vars into vm and returns the global names it touched.
func bindVars(vm *goja.Runtime, vars map[string]float64) []string {
	if len(vars) == 0 {
		return nil
	}
	objects := make(map[string]*goja.Object)
	var roots []string
	for key, v := range vars {
		root, field, nested := strings.Cut(key, "_")
		if !nested || root == "" || field == "" {
			vm.Set(key, v)
			roots = append(roots, key)
			continue
		}
		obj, ok := objects[root]
		if !ok {
			obj = vm.NewObject()
			objects[root] = obj
			vm.Set(root, obj)
			roots = append(roots, root)
		}
		_ = obj.Set(field, v)
	}
	return roots
}

func unbindVars(vm *goja.Runtime, roots []string) {
	for _, name := range roots {
		vm.Set(name, goja.Undefined())
	}
}

// newSafeVM creates a goja Runtime with dangerous globals removed.
func newSafeVM() *goja.Runtime {
	vm := goja.New()
	for _, name := range []string{"require", "process", "fetch", "XMLHttpRequest", "eval", "Function"} {
		vm.Set(name, goja.Undefined())
	}
	mathObj := vm.NewObject()
	_ = mathObj.Set("floor", math.Floor)
	_ = mathObj.Set("ceil", math.Ceil)
	_ = mathObj.Set("round", func(v float64) float64 { return math.Floor(v + 0.5) })
	_ = mathObj.Set("abs", math.Abs)
	_ = mathObj.Set("sqrt", math.Sqrt)
	_ = mathObj.Set("pow", math.Pow)
	_ = mathObj.Set("max", math.Max)
	_ = mathObj.Set("min", math.Min)
	_ = mathObj.Set("random", func() float64 { return 0 }) // battles are seeded; scripts stay deterministic
	vm.Set("Math", mathObj)
	return vm
}

// Sandbox wraps a VMPool and provides context-aware evaluation.
type Sandbox struct {
	pool   *VMPool
	logger *zap.Logger
}

// NewSandbox creates a Sandbox backed by a VMPool.
func NewSandbox(size int, timeout time.Duration, logger *zap.Logger) *Sandbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sandbox{
		pool:   NewVMPool(size, timeout, logger),
		logger: logger,
	}
}

// Eval executes src with vars bound, returning the exported result.
func (sb *Sandbox) Eval(ctx context.Context, src string, vars map[string]float64) (interface{}, error) {
	result, err := sb.pool.Run(ctx, src, vars)
	if err != nil {
		sb.logger.Warn("script execution error",
			zap.String("src_preview", truncate(src, 80)),
			zap.Error(err))
	}
	return result, err
}

// EvalNumber evaluates src and converts the result to a finite float64.
func (sb *Sandbox) EvalNumber(ctx context.Context, src string, vars map[string]float64) (float64, error) {
	out, err := sb.Eval(ctx, src, vars)
	if err != nil {
		return 0, err
	}
	var f float64
	switch v := out.(type) {
	case int64:
		f = float64(v)
	case float64:
		f = v
	case bool:
		if v {
			f = 1
		}
	default:
		return 0, fmt.Errorf("%w: %T", ErrNotNumeric, out)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v", ErrNotNumeric, f)
	}
	return f, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
