package recorder

import (
	"context"
	"time"

	"codeberg.org/mutker/padstate/internal/gamepad"
)

// Collector records derived device states
type Collector interface {
	Record(ctx context.Context, sample *Sample) error
	Close() error
	IsEnabled() bool
}

// Repository defines the interface for sample storage
type Repository interface {
	Record(sample *Sample) error
	Close() error
}

// Sample is one published state and when it was observed
type Sample struct {
	Timestamp time.Time
	State     gamepad.DeviceState
}

// row is the stored form of a Sample
type row struct {
	timestamp    int64
	leftX        float64
	leftY        float64
	rightX       float64
	rightY       float64
	leftTrigger  float64
	rightTrigger float64
	held         int64
	pressed      int64
	dpad         int64
}

// newRow flattens a sample. Digital controls are packed into bitmasks
// indexed by gamepad.Field.
func newRow(s *Sample) row {
	st := s.State
	r := row{
		timestamp:    s.Timestamp.UnixNano(),
		leftX:        st.Left.Stick.X,
		leftY:        st.Left.Stick.Y,
		rightX:       st.Right.Stick.X,
		rightY:       st.Right.Stick.Y,
		leftTrigger:  st.Left.Trigger,
		rightTrigger: st.Right.Trigger,
	}

	for _, f := range gamepad.Fields() {
		bit := int64(1) << uint(f)
		if b, ok := st.Button(f); ok {
			if b.Held {
				r.held |= bit
			}
			if b.JustPressed {
				r.pressed |= bit
			}
		}
		if l, ok := st.Level(f); ok && l {
			r.dpad |= bit
		}
	}

	return r
}

func (r row) values() []interface{} {
	return []interface{}{
		r.timestamp,
		r.leftX, r.leftY, r.rightX, r.rightY,
		r.leftTrigger, r.rightTrigger,
		r.held, r.pressed, r.dpad,
	}
}
