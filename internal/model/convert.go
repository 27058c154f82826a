package model

// ConvertReading derives a Measurement from a raw data point value under a
// NodeMapping, per the conversion table in spec §4.3. ct is the incoming
// data point's own channel type (not necessarily m.ChannelType: a single
// valve mapping accepts both ChannelValveVoltage and ChannelValveCurrent
// points over its lifetime, so the unit has to follow the point, not the
// mapping). ok is false for an unknown sensor type, or for a Valve mapping
// given a non-valve channel type; the other sensor types do not look at
// ct, so callers filter by Accepts before calling.
func ConvertReading(m NodeMapping, ct ChannelType, value float64) (Measurement, bool) {
	switch m.SensorType {
	case SensorRailVoltage:
		return Measurement{Value: value, Unit: UnitVolts}, true
	case SensorRailCurrent:
		return Measurement{Value: value, Unit: UnitAmps}, true
	case SensorRtd, SensorTc:
		return Measurement{Value: value, Unit: UnitKelvin}, true
	case SensorPt:
		if m.Min != nil && m.Max != nil {
			offset := 0.0
			if m.CalibratedOffset != nil {
				offset = *m.CalibratedOffset
			}
			v := (value-0.8)/3.2*(*m.Max-*m.Min) + *m.Min - offset
			return Measurement{Value: v, Unit: UnitPsi}, true
		}
		return Measurement{Value: value, Unit: UnitVolts}, true
	case SensorLoadCell:
		if m.Min != nil && m.Max != nil {
			offset := 0.0
			if m.CalibratedOffset != nil {
				offset = *m.CalibratedOffset
			}
			v := (*m.Max-*m.Min)/0.03*(value+0.015) + *m.Min - offset
			return Measurement{Value: v, Unit: UnitPounds}, true
		}
		return Measurement{Value: value, Unit: UnitVolts}, true
	case SensorValve:
		switch ct {
		case ChannelValveVoltage:
			return Measurement{Value: value, Unit: UnitVolts}, true
		case ChannelValveCurrent:
			return Measurement{Value: value, Unit: UnitAmps}, true
		}
	}
	return Measurement{}, false
}

// ValveVoltageKey and ValveCurrentKey are the reserved sensor_readings keys
// the Valve split writes to and reads back from.
func ValveVoltageKey(textId string) string { return textId + "_V" }
func ValveCurrentKey(textId string) string { return textId + "_I" }

// EstimateValveState applies the truth table of spec §4.3 to derive the
// actual (electrically observed) valve state from its voltage/current
// split and calibration. It is a pure function of its inputs.
func EstimateValveState(voltage, current float64, poweredThreshold *float64, normallyClosed bool) ValveState {
	if poweredThreshold == nil {
		return ValveFault
	}

	var state ValveState
	if current < *poweredThreshold {
		if voltage < 4.0 {
			state = ValveClosed
		} else {
			state = ValveDisconnected
		}
	} else {
		if voltage < 20.0 {
			state = ValveFault
		} else {
			state = ValveOpen
		}
	}

	if !normallyClosed {
		switch state {
		case ValveOpen:
			state = ValveClosed
		case ValveClosed:
			state = ValveOpen
		}
	}
	return state
}
