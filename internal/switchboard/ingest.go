package switchboard

import (
	"github.com/rs/zerolog"

	"github.com/rayNotGlorious/flight-with-actions/internal/model"
	"github.com/rayNotGlorious/flight-with-actions/internal/state"
	"github.com/rayNotGlorious/flight-with-actions/internal/wire"
)

// ingestBatch is one Sam datagram's worth of data points, kept together
// so they can be processed in arrival order per spec §5.
type ingestBatch struct {
	board  model.BoardId
	points []wire.DataPoint
}

// Ingest converts raw board data points into unit-correct measurements
// and valve-state estimates, writing the results into SharedState (spec
// §4.3).
type Ingest struct {
	state *state.SharedState
	log   zerolog.Logger
	in    <-chan ingestBatch
}

func newIngest(s *state.SharedState, in <-chan ingestBatch, log zerolog.Logger) *Ingest {
	return &Ingest{state: s, log: log, in: in}
}

// Run processes batches until stop is closed.
func (ig *Ingest) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case batch := <-ig.in:
			ig.process(batch)
		}
	}
}

func (ig *Ingest) process(batch ingestBatch) {
	// one snapshot per datagram: every point in this batch is matched
	// against the same mapping list, so a concurrent Mappings swap can
	// never be observed as "half old, half new" within one Sam message.
	mappings := ig.state.Mappings()

	for _, p := range batch.points {
		matched := false
		for _, m := range mappings {
			if !m.Matches(batch.board, p.Channel, p.ChannelType) {
				continue
			}
			matched = true
			ig.applyMapping(m, p)
		}
		if !matched {
			ig.log.Debug().
				Str("board", string(batch.board)).
				Int("channel", p.Channel).
				Stringer("channel_type", p.ChannelType).
				Msg("dropping data point: no mapping accepts it")
		}
	}
}

func (ig *Ingest) applyMapping(m model.NodeMapping, p wire.DataPoint) {
	if m.SensorType == model.SensorValve {
		ig.applyValve(m, p)
		return
	}

	measurement, ok := model.ConvertReading(m, p.ChannelType, p.Value)
	if !ok {
		ig.log.Warn().Str("text_id", m.TextId).Msg("mapping matched but conversion table has no entry")
		return
	}
	ig.state.SetSensor(m.TextId, measurement)
}

func (ig *Ingest) applyValve(m model.NodeMapping, p wire.DataPoint) {
	measurement, ok := model.ConvertReading(m, p.ChannelType, p.Value)
	if !ok {
		return
	}

	var voltage, current float64
	switch p.ChannelType {
	case model.ChannelValveVoltage:
		ig.state.SetSensor(model.ValveVoltageKey(m.TextId), measurement)
		voltage = measurement.Value
		if other, ok := ig.state.Sensor(model.ValveCurrentKey(m.TextId)); ok {
			current = other.Value
		}
	case model.ChannelValveCurrent:
		ig.state.SetSensor(model.ValveCurrentKey(m.TextId), measurement)
		current = measurement.Value
		if other, ok := ig.state.Sensor(model.ValveVoltageKey(m.TextId)); ok {
			voltage = other.Value
		}
	default:
		return
	}

	actual := model.EstimateValveState(voltage, current, m.PoweredThreshold, m.NormallyClosedOrDefault())
	ig.state.SetValveActual(m.TextId, actual)
}
