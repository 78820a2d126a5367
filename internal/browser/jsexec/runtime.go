// Package jsexec runs JavaScript in a goja runtime under a context. One
// Runtime serves one page; scripts on it run one at a time.
package jsexec

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a script whose context carries no deadline.
const DefaultTimeout = 5 * time.Second

// ScriptError is an exception a script threw, formatted the way a browser
// console prints it ("ReferenceError: f is not defined").
type ScriptError struct {
	Message string
}

func (e *ScriptError) Error() string { return e.Message }

// Runtime owns a goja VM.
type Runtime struct {
	mu     sync.Mutex
	vm     *goja.Runtime
	logger *zap.Logger
}

// NewRuntime creates a runtime with an empty global scope.
func NewRuntime(logger *zap.Logger) *Runtime {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runtime{vm: goja.New(), logger: logger.Named("jsexec")}
}

// Do runs fn with exclusive use of the VM. The VM is interrupted when ctx ends,
// or after DefaultTimeout when ctx has no deadline. fn must not call Do again;
// code already running inside Do uses the VM it was handed.
func (r *Runtime) Do(ctx context.Context, fn func(vm *goja.Runtime) (goja.Value, error)) (goja.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			r.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	v, err := fn(r.vm)
	close(done)
	wg.Wait()
	r.vm.ClearInterrupt()

	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			r.logger.Debug("Script interrupted.", zap.Error(ctx.Err()))
			return nil, fmt.Errorf("script interrupted: %w", ctx.Err())
		}
		return nil, Convert(err)
	}
	return v, nil
}

// Execute evaluates src in the global scope.
func (r *Runtime) Execute(ctx context.Context, src string) (goja.Value, error) {
	return r.Do(ctx, func(vm *goja.Runtime) (goja.Value, error) {
		return vm.RunString(src)
	})
}

// Convert turns a thrown exception into a ScriptError and passes other errors
// through.
func Convert(err error) error {
	var exc *goja.Exception
	if errors.As(err, &exc) {
		if v := exc.Value(); v != nil {
			return &ScriptError{Message: v.String()}
		}
		return &ScriptError{Message: exc.Error()}
	}
	return err
}
