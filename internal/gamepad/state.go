// Package gamepad derives a structured, deadzone-filtered and
// edge-tracked gamepad state from raw device snapshots.
package gamepad

// ButtonRecord is the raw reading of one button.
type ButtonRecord struct {
	Held  bool
	Value float64 // 0..1, meaningful for analog buttons such as triggers
}

// Snapshot is the raw reading of a device at one instant.
type Snapshot struct {
	Axes    []float64 // -1..1
	Buttons []ButtonRecord
}

// Source provides raw device snapshots. Snapshot must not block.
type Source interface {
	Snapshot() (Snapshot, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func() (Snapshot, error)

func (f SourceFunc) Snapshot() (Snapshot, error) {
	return f()
}

// Button holds the level and edge state of a digital control.
// JustPressed is true only on the sample where Held went from false to true.
type Button struct {
	Held        bool
	JustPressed bool
}

type Stick struct {
	X      float64
	Y      float64
	Button Button
}

// Side groups the controls operated by one hand.
type Side struct {
	Stick   Stick
	Bumper  Button
	Trigger float64
}

// DPad is level-only.
type DPad struct {
	Up    bool
	Down  bool
	Left  bool
	Right bool
}

type ButtonPanel struct {
	A     Button
	B     Button
	X     Button
	Y     Button
	Back  Button
	Start Button
	Home  Button
}

// DeviceState is the derived state of the whole device. It is a plain
// comparable value; the zero value is the state before any sample.
type DeviceState struct {
	Left    Side
	Right   Side
	DPad    DPad
	Buttons ButtonPanel
}

// Analog returns the value of an analog field.
func (s DeviceState) Analog(f Field) (float64, bool) {
	if v := f.analog(&s); v != nil {
		return *v, true
	}

	return 0, false
}

// Button returns the state of an edge-tracked field.
func (s DeviceState) Button(f Field) (Button, bool) {
	if b := f.button(&s); b != nil {
		return *b, true
	}

	return Button{}, false
}

// Level returns the state of a level field.
func (s DeviceState) Level(f Field) (bool, bool) {
	if l := f.level(&s); l != nil {
		return *l, true
	}

	return false, false
}
