// Package engine implements the sequence/trigger execution engine (C7):
// operator scripts run against a small, fixed capability object model
// bound into a goja JavaScript runtime, with cooperative cancellation
// checked at every capability call-in (spec §4.7).
package engine

import (
	"time"

	"github.com/dop251/goja"
	"github.com/rs/zerolog"

	"github.com/rayNotGlorious/flight-with-actions/internal/model"
	"github.com/rayNotGlorious/flight-with-actions/internal/state"
)

// Engine runs sequence and trigger scripts. Each call to RunSequence (and
// each trigger tick) gets its own *goja.Runtime, since sequences run on
// their own OS-thread-backed goroutine per spec §5's "parallel OS
// threads" model — there is no shared single-threaded reactor here, which
// is why this engine binds goja directly rather than reusing the pack's
// goja-eventloop adapter (that adapter exists to bridge a *shared* event
// loop's setTimeout/Promise surface into goja; our capability surface has
// neither, and each sequence already owns its own thread of control).
type Engine struct {
	state   *state.SharedState
	handler *DeviceHandler
	log     zerolog.Logger

	pollInterval time.Duration
}

// New builds an Engine bound to shared state and a device handler.
func New(s *state.SharedState, handler *DeviceHandler, log zerolog.Logger) *Engine {
	return &Engine{state: s, handler: handler, log: log, pollInterval: 10 * time.Millisecond}
}

// RunSequence executes script to completion (or until cancelled) as the
// named sequence, identified by handle. It never returns an error for a
// clean abort; script exceptions are logged and returned.
func (e *Engine) RunSequence(name string, handle state.SequenceHandle, script string) (err error) {
	log := e.log.With().Str("sequence", name).Logger()
	signal := newAbortSignal()

	defer func() {
		if r := recover(); r != nil {
			if ae, ok := r.(*abortException); ok {
				log.Info().Str("reason", ae.reason).Msg("sequence aborted")
				err = nil
				return
			}
			panic(r)
		}
	}()

	vm := goja.New()
	e.bind(vm, name, handle, signal, log)

	_, runErr := vm.RunString(script)
	if runErr != nil {
		if signal.Aborted() {
			// the script's own error handling (or lack thereof) raced
			// with cancellation; treat it as a clean abort either way.
			return nil
		}
		log.Error().Err(runErr).Msg("sequence script failed")
		return runErr
	}
	return nil
}

// checkAbort is called by every capability call-in. If the sequence's
// registration has been superseded or cleared (engine cancellation, spec
// §4.7/§5), it latches signal and panics an *abortException, which
// RunSequence's deferred recover turns into a clean return.
func (e *Engine) checkAbort(name string, handle state.SequenceHandle, signal *abortSignal) {
	if signal.Aborted() {
		panic(&abortException{reason: signal.Reason()})
	}
	if !e.state.IsActive(name, handle) {
		signal.Abort("sequence cancelled")
		panic(&abortException{reason: signal.Reason()})
	}
}

func (e *Engine) bind(vm *goja.Runtime, name string, handle state.SequenceHandle, signal *abortSignal, log zerolog.Logger) {
	must := func(err error) {
		if err != nil {
			log.Error().Err(err).Msg("failed to bind capability into sequence runtime")
		}
	}

	must(vm.Set("s", 1.0))
	must(vm.Set("ms", 0.001))
	must(vm.Set("us", 0.000001))
	must(vm.Set("psi", 1.0))
	must(vm.Set("F", 1.0))

	must(vm.Set("wait_for", func(durationSeconds float64) {
		e.waitFor(name, handle, signal, durationSeconds)
	}))
	must(vm.Set("wait_until", func(call goja.FunctionCall) goja.Value {
		return e.waitUntil(vm, name, handle, signal, call)
	}))

	sensorObj := vm.NewObject()
	must(sensorObj.Set("read", func(sensorName string) float64 {
		e.checkAbort(name, handle, signal)
		return e.handler.ReadSensor(sensorName)
	}))
	must(vm.Set("Sensor", sensorObj))

	// abort() is the one capability the distinguished "abort" sequence
	// calls (spec.md §9 Open Question (d), resolved in SPEC_FULL.md §13:
	// the abort sequence's script is literally "abort()"): close every
	// valve mapping, the one safing action that needs no operator-supplied
	// logic to be physically sensible on a ground test stand.
	must(vm.Set("abort", func() {
		e.checkAbort(name, handle, signal)
		for _, m := range e.state.Mappings() {
			if m.SensorType == model.SensorValve {
				e.handler.Actuate(m.TextId, model.ValveClosed)
			}
		}
	}))

	must(vm.Set("Valve", func(call goja.FunctionCall) goja.Value {
		valveName := call.Argument(0).String()
		obj := vm.NewObject()
		must(obj.Set("open", func() {
			e.checkAbort(name, handle, signal)
			e.handler.Actuate(valveName, model.ValveOpen)
		}))
		must(obj.Set("close", func() {
			e.checkAbort(name, handle, signal)
			e.handler.Actuate(valveName, model.ValveClosed)
		}))
		must(obj.Set("is_open", func() bool {
			e.checkAbort(name, handle, signal)
			return e.handler.IsOpen(valveName)
		}))
		must(obj.Set("is_closed", func() bool {
			e.checkAbort(name, handle, signal)
			return e.handler.IsClosed(valveName)
		}))
		return obj
	}))
}

// waitFor blocks the calling goroutine for durationSeconds, checking the
// abort signal every pollInterval so cancellation is prompt (spec §4.7:
// "blocks the current sequence for a duration; cooperative, must be
// cancellable").
func (e *Engine) waitFor(name string, handle state.SequenceHandle, signal *abortSignal, durationSeconds float64) {
	e.checkAbort(name, handle, signal)
	deadline := time.Now().Add(time.Duration(durationSeconds * float64(time.Second)))
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}
		step := e.pollInterval
		if remaining < step {
			step = remaining
		}
		time.Sleep(step)
		e.checkAbort(name, handle, signal)
	}
}

// waitUntil polls conditionFn every interval (default pollInterval) until
// it returns truthy or timeout elapses (spec §4.7). Arguments beyond the
// condition function are optional: (conditionFn), (conditionFn, interval)
// or (conditionFn, interval, timeout), all in seconds.
func (e *Engine) waitUntil(vm *goja.Runtime, name string, handle state.SequenceHandle, signal *abortSignal, call goja.FunctionCall) goja.Value {
	e.checkAbort(name, handle, signal)

	fn, ok := goja.AssertFunction(call.Argument(0))
	if !ok {
		panic(vm.NewTypeError("wait_until requires a function as its first argument"))
	}

	interval := e.pollInterval
	if len(call.Arguments) > 1 && !goja.IsUndefined(call.Argument(1)) {
		interval = time.Duration(call.Argument(1).ToFloat() * float64(time.Second))
	}
	var deadline time.Time
	hasTimeout := len(call.Arguments) > 2 && !goja.IsUndefined(call.Argument(2))
	if hasTimeout {
		deadline = time.Now().Add(time.Duration(call.Argument(2).ToFloat() * float64(time.Second)))
	}

	for {
		e.checkAbort(name, handle, signal)
		val, err := fn(goja.Undefined())
		if err != nil {
			panic(err)
		}
		if val.ToBoolean() {
			return goja.Undefined()
		}
		if hasTimeout && time.Now().After(deadline) {
			return goja.Undefined()
		}
		time.Sleep(interval)
	}
}
