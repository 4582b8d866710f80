package gamepad

import (
	"math"

	"codeberg.org/mutker/padstate/internal/errors"
)

// Deadzone returns v unchanged when |v| >= threshold and 0 otherwise.
func Deadzone(v, threshold float64) float64 {
	if math.Abs(v) < threshold {
		return 0
	}

	return v
}

// Sample derives a new state from raw using the standard layout.
func Sample(raw Snapshot, previous DeviceState, deadzone float64) (DeviceState, error) {
	return StandardLayout().Sample(raw, previous, deadzone)
}

// Sample derives a new state from raw. Edge state is computed against
// previous only. Sample has no side effects: equal inputs always give
// equal outputs.
func (l Layout) Sample(raw Snapshot, previous DeviceState, deadzone float64) (DeviceState, error) {
	errFactory := errors.New()

	var next DeviceState
	for _, b := range l.Bindings {
		switch b.Kind {
		case Analog:
			v, err := raw.analog(b)
			if err != nil {
				return DeviceState{}, err
			}
			target := b.Field.analog(&next)
			if target == nil {
				return DeviceState{}, errFactory.WithData(ErrInvalidBinding, BindingProblem{Binding: b, Reason: "not an analog field"})
			}
			*target = Deadzone(v, deadzone)

		case Edge:
			held, err := raw.held(b)
			if err != nil {
				return DeviceState{}, err
			}
			target, last := b.Field.button(&next), b.Field.button(&previous)
			if target == nil {
				return DeviceState{}, errFactory.WithData(ErrInvalidBinding, BindingProblem{Binding: b, Reason: "not a button field"})
			}
			*target = Button{Held: held, JustPressed: held && !last.Held}

		case Level:
			held, err := raw.held(b)
			if err != nil {
				return DeviceState{}, err
			}
			target := b.Field.level(&next)
			if target == nil {
				return DeviceState{}, errFactory.WithData(ErrInvalidBinding, BindingProblem{Binding: b, Reason: "not a level field"})
			}
			*target = held

		default:
			return DeviceState{}, errFactory.WithData(ErrInvalidBinding, BindingProblem{Binding: b, Reason: "unknown kind"})
		}
	}

	return next, nil
}

// JustPressed lists the fields whose edge fired in s, in layout order.
func (l Layout) JustPressed(s DeviceState) []Field {
	var pressed []Field
	seen := make(map[Field]bool)
	for _, b := range l.Bindings {
		if b.Kind != Edge || seen[b.Field] {
			continue
		}
		seen[b.Field] = true
		if btn := b.Field.button(&s); btn != nil && btn.JustPressed {
			pressed = append(pressed, b.Field)
		}
	}

	return pressed
}

func (s Snapshot) analog(b Binding) (float64, error) {
	if b.Source == AxisInput {
		if b.Index < 0 || b.Index >= len(s.Axes) {
			return 0, s.missing(b, len(s.Axes))
		}
		v := s.Axes[b.Index]
		if b.Range == AxisTrigger {
			v = (v + 1) / 2
		}
		return v, nil
	}

	if b.Index < 0 || b.Index >= len(s.Buttons) {
		return 0, s.missing(b, len(s.Buttons))
	}

	return s.Buttons[b.Index].Value, nil
}

func (s Snapshot) held(b Binding) (bool, error) {
	if b.Source == AxisInput {
		if b.Index < 0 || b.Index >= len(s.Axes) {
			return false, s.missing(b, len(s.Axes))
		}
		switch b.Range {
		case AxisNegative:
			return s.Axes[b.Index] <= -halfTravel, nil
		case AxisPositive:
			return s.Axes[b.Index] >= halfTravel, nil
		default:
			return false, errors.New().WithData(ErrInvalidBinding, BindingProblem{Binding: b, Reason: "digital fields need a negative or positive axis range"})
		}
	}
	if b.Index < 0 || b.Index >= len(s.Buttons) {
		return false, s.missing(b, len(s.Buttons))
	}

	return s.Buttons[b.Index].Held, nil
}

func (Snapshot) missing(b Binding, length int) error {
	return errors.New().WithData(ErrMalformedSnapshot, MissingControl{
		Field:  b.Field,
		Source: b.Source,
		Index:  b.Index,
		Length: length,
	})
}
