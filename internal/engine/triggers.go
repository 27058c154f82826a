package engine

import (
	"fmt"
	"time"

	"github.com/dop251/goja"
	"github.com/rs/zerolog"

	"github.com/rayNotGlorious/flight-with-actions/internal/model"
	"github.com/rayNotGlorious/flight-with-actions/internal/state"
)

// TriggerEvaluator runs on its own goroutine, evaluating every active
// trigger's condition on a fixed cadence and running its script to
// completion on truth (spec §4.7). Trigger-originated sequences run
// synchronously on this goroutine and so serialize against each other.
type TriggerEvaluator struct {
	state  *state.SharedState
	engine *Engine
	period time.Duration
	log    zerolog.Logger
}

// NewTriggerEvaluator builds a TriggerEvaluator.
func NewTriggerEvaluator(s *state.SharedState, e *Engine, period time.Duration, log zerolog.Logger) *TriggerEvaluator {
	return &TriggerEvaluator{state: s, engine: e, period: period, log: log}
}

// Run evaluates triggers on a fixed cadence until stop is closed.
func (t *TriggerEvaluator) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(t.period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.tick()
		}
	}
}

func (t *TriggerEvaluator) tick() {
	for _, trig := range t.state.Triggers() {
		if !trig.Active {
			continue
		}
		t.evaluate(trig)
	}
}

func (t *TriggerEvaluator) evaluate(trig model.Trigger) {
	log := t.log.With().Str("trigger", trig.Name).Logger()

	truthy, err := t.evalCondition(trig.Condition)
	if err != nil {
		log.Error().Err(err).Msg("trigger condition failed, deactivating")
		t.state.DeactivateTrigger(trig.Name)
		return
	}
	if !truthy {
		return
	}

	// the trigger's script is registered in the active-sequences map under
	// the trigger's name for the duration of the run, so it passes the
	// engine's call-in check and is cancelled like any other sequence when
	// abort clears the map; the registration is removed when the run ends.
	handle := t.state.RegisterSequence(trig.Name)
	defer t.state.CancelSequence(trig.Name)

	if err := t.engine.RunSequence(trig.Name, handle, trig.Script); err != nil {
		log.Error().Err(err).Msg("trigger script failed, deactivating")
		t.state.DeactivateTrigger(trig.Name)
	}
}

// evalCondition evaluates a trigger condition expression in a fresh,
// short-lived goja runtime bound to the same read-only capability surface
// a sequence gets (Sensor.read, Valve(name).is_open/is_closed, unit
// constants), but without wait_for/wait_until/mutating Valve calls — a
// condition expression is meant to be a quick boolean check, not a script.
// Open Question (c) (spec §9) is resolved here: no compiled/cached
// expression object is kept between ticks, since constructing a goja
// runtime is cheap relative to the 10ms trigger cadence.
func (t *TriggerEvaluator) evalCondition(expr string) (bool, error) {
	vm := goja.New()
	sensorObj := vm.NewObject()
	_ = sensorObj.Set("read", func(name string) float64 { return t.engine.handler.ReadSensor(name) })
	_ = vm.Set("Sensor", sensorObj)
	_ = vm.Set("Valve", func(call goja.FunctionCall) goja.Value {
		valveName := call.Argument(0).String()
		obj := vm.NewObject()
		_ = obj.Set("is_open", func() bool { return t.engine.handler.IsOpen(valveName) })
		_ = obj.Set("is_closed", func() bool { return t.engine.handler.IsClosed(valveName) })
		return obj
	})
	_ = vm.Set("s", 1.0)
	_ = vm.Set("ms", 0.001)
	_ = vm.Set("us", 0.000001)
	_ = vm.Set("psi", 1.0)
	_ = vm.Set("F", 1.0)

	val, err := vm.RunString(expr)
	if err != nil {
		return false, fmt.Errorf("engine: evaluate trigger condition: %w", err)
	}
	return val.ToBoolean(), nil
}
