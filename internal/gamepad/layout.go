package gamepad

import (
	"fmt"

	"codeberg.org/mutker/padstate/internal/errors"
)

// InputSource selects which raw sequence a binding reads from.
type InputSource int

const (
	AxisInput InputSource = iota
	ButtonInput
)

func (s InputSource) String() string {
	switch s {
	case AxisInput:
		return "axis"
	case ButtonInput:
		return "button"
	default:
		return fmt.Sprintf("InputSource(%d)", int(s))
	}
}

// AxisRange selects which part of an axis a binding reads. Buttons are
// always read directly.
type AxisRange int

const (
	// AxisDirect passes the axis value through.
	AxisDirect AxisRange = iota
	// AxisTrigger rescales a -1 (released) to 1 (pressed) axis to 0..1.
	AxisTrigger
	// AxisNegative and AxisPositive read one direction of an axis as a
	// digital control, held past half travel. Hat switches report this way.
	AxisNegative
	AxisPositive
)

const halfTravel = 0.5

func (r AxisRange) String() string {
	switch r {
	case AxisDirect:
		return "direct"
	case AxisTrigger:
		return "trigger"
	case AxisNegative:
		return "negative"
	case AxisPositive:
		return "positive"
	default:
		return fmt.Sprintf("AxisRange(%d)", int(r))
	}
}

func (r AxisRange) digital() bool {
	return r == AxisNegative || r == AxisPositive
}

// Kind selects how a raw control is filtered into its field.
type Kind int

const (
	// Analog values pass through the deadzone filter. Button sources
	// contribute their Value.
	Analog Kind = iota
	// Edge controls track Held and JustPressed.
	Edge
	// Level controls track Held only.
	Level
)

func (k Kind) String() string {
	switch k {
	case Analog:
		return "analog"
	case Edge:
		return "edge"
	case Level:
		return "level"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Field names a destination in DeviceState.
type Field int

const (
	LeftStickX Field = iota
	LeftStickY
	LeftStickButton
	LeftBumper
	LeftTrigger
	RightStickX
	RightStickY
	RightStickButton
	RightBumper
	RightTrigger
	DPadUp
	DPadDown
	DPadLeft
	DPadRight
	ButtonA
	ButtonB
	ButtonX
	ButtonY
	ButtonBack
	ButtonStart
	ButtonHome

	fieldCount
)

var fieldNames = [fieldCount]string{
	LeftStickX:       "left.stick.x",
	LeftStickY:       "left.stick.y",
	LeftStickButton:  "left.stick.button",
	LeftBumper:       "left.bumper",
	LeftTrigger:      "left.trigger",
	RightStickX:      "right.stick.x",
	RightStickY:      "right.stick.y",
	RightStickButton: "right.stick.button",
	RightBumper:      "right.bumper",
	RightTrigger:     "right.trigger",
	DPadUp:           "dpad.up",
	DPadDown:         "dpad.down",
	DPadLeft:         "dpad.left",
	DPadRight:        "dpad.right",
	ButtonA:          "buttons.a",
	ButtonB:          "buttons.b",
	ButtonX:          "buttons.x",
	ButtonY:          "buttons.y",
	ButtonBack:       "buttons.back",
	ButtonStart:      "buttons.start",
	ButtonHome:       "buttons.home",
}

func (f Field) String() string {
	if f < 0 || f >= fieldCount {
		return fmt.Sprintf("Field(%d)", int(f))
	}

	return fieldNames[f]
}

// Fields returns every addressable field of DeviceState.
func Fields() []Field {
	fields := make([]Field, 0, fieldCount)
	for f := Field(0); f < fieldCount; f++ {
		fields = append(fields, f)
	}

	return fields
}

// Kind returns the only binding kind compatible with the field.
func (f Field) Kind() Kind {
	switch f {
	case LeftStickX, LeftStickY, LeftTrigger, RightStickX, RightStickY, RightTrigger:
		return Analog
	case DPadUp, DPadDown, DPadLeft, DPadRight:
		return Level
	default:
		return Edge
	}
}

func (f Field) analog(s *DeviceState) *float64 {
	switch f {
	case LeftStickX:
		return &s.Left.Stick.X
	case LeftStickY:
		return &s.Left.Stick.Y
	case LeftTrigger:
		return &s.Left.Trigger
	case RightStickX:
		return &s.Right.Stick.X
	case RightStickY:
		return &s.Right.Stick.Y
	case RightTrigger:
		return &s.Right.Trigger
	}

	return nil
}

func (f Field) button(s *DeviceState) *Button {
	switch f {
	case LeftStickButton:
		return &s.Left.Stick.Button
	case LeftBumper:
		return &s.Left.Bumper
	case RightStickButton:
		return &s.Right.Stick.Button
	case RightBumper:
		return &s.Right.Bumper
	case ButtonA:
		return &s.Buttons.A
	case ButtonB:
		return &s.Buttons.B
	case ButtonX:
		return &s.Buttons.X
	case ButtonY:
		return &s.Buttons.Y
	case ButtonBack:
		return &s.Buttons.Back
	case ButtonStart:
		return &s.Buttons.Start
	case ButtonHome:
		return &s.Buttons.Home
	}

	return nil
}

func (f Field) level(s *DeviceState) *bool {
	switch f {
	case DPadUp:
		return &s.DPad.Up
	case DPadDown:
		return &s.DPad.Down
	case DPadLeft:
		return &s.DPad.Left
	case DPadRight:
		return &s.DPad.Right
	}

	return nil
}

// Binding maps one raw control to one field. A raw control may feed
// several fields through separate bindings.
type Binding struct {
	Source InputSource
	Index  int
	Field  Field
	Kind   Kind
	Range  AxisRange
}

func (b Binding) String() string {
	if b.Range != AxisDirect {
		return fmt.Sprintf("%s %d %s -> %s (%s)", b.Source, b.Index, b.Range, b.Field, b.Kind)
	}
	return fmt.Sprintf("%s %d -> %s (%s)", b.Source, b.Index, b.Field, b.Kind)
}

func (b Binding) validate() error {
	errFactory := errors.New()
	reject := func(reason string) error {
		return errFactory.WithData(ErrInvalidBinding, BindingProblem{Binding: b, Reason: reason})
	}

	switch {
	case b.Field < 0 || b.Field >= fieldCount:
		return reject("unknown field")
	case b.Index < 0:
		return reject("negative index")
	case b.Source != AxisInput && b.Source != ButtonInput:
		return reject("unknown source")
	case b.Kind != b.Field.Kind():
		return reject(fmt.Sprintf("field requires %s binding", b.Field.Kind()))
	case b.Range < AxisDirect || b.Range > AxisPositive:
		return reject("unknown axis range")
	case b.Source == ButtonInput && b.Range != AxisDirect:
		return reject("buttons are read directly")
	case b.Source == AxisInput && b.Kind == Analog && b.Range.digital():
		return reject("analog fields need a direct or trigger range")
	case b.Source == AxisInput && b.Kind != Analog && !b.Range.digital():
		return reject("digital fields need a negative or positive axis range")
	}

	return nil
}

// Layout is the lookup table from raw control indices to DeviceState
// fields. Bindings are applied in order.
type Layout struct {
	Name     string
	Bindings []Binding
}

// NewLayout validates the bindings and returns the layout.
func NewLayout(name string, bindings ...Binding) (Layout, error) {
	l := Layout{Name: name, Bindings: bindings}
	if err := l.Validate(); err != nil {
		return Layout{}, err
	}

	return l, nil
}

// Validate checks every binding for source, kind and field compatibility.
func (l Layout) Validate() error {
	errFactory := errors.New()

	if len(l.Bindings) == 0 {
		return errFactory.WithMessage(ErrInvalidLayout, "layout has no bindings")
	}
	for _, b := range l.Bindings {
		if err := b.validate(); err != nil {
			return errFactory.Wrap(ErrInvalidLayout, err)
		}
	}

	return nil
}

// StandardLayout is the mapping for standard-layout gamepads.
//
// Buttons 0 and 1 intentionally feed both a stick click and a face button;
// this mirrors the mapping the layout was derived from and is kept until
// the target hardware documentation says otherwise.
func StandardLayout() Layout {
	return Layout{
		Name: "standard",
		Bindings: []Binding{
			{AxisInput, 0, LeftStickX, Analog, AxisDirect},
			{AxisInput, 1, LeftStickY, Analog, AxisDirect},
			{AxisInput, 2, RightStickX, Analog, AxisDirect},
			{AxisInput, 3, RightStickY, Analog, AxisDirect},

			{ButtonInput, 0, LeftStickButton, Edge, AxisDirect},
			{ButtonInput, 0, ButtonX, Edge, AxisDirect},
			{ButtonInput, 1, RightStickButton, Edge, AxisDirect},
			{ButtonInput, 1, ButtonY, Edge, AxisDirect},
			{ButtonInput, 2, ButtonA, Edge, AxisDirect},
			{ButtonInput, 3, ButtonB, Edge, AxisDirect},
			{ButtonInput, 4, RightBumper, Edge, AxisDirect},
			{ButtonInput, 5, LeftBumper, Edge, AxisDirect},
			{ButtonInput, 6, LeftTrigger, Analog, AxisDirect},
			{ButtonInput, 7, RightTrigger, Analog, AxisDirect},
			{ButtonInput, 8, ButtonBack, Edge, AxisDirect},
			{ButtonInput, 9, ButtonStart, Edge, AxisDirect},
			{ButtonInput, 10, ButtonHome, Edge, AxisDirect},

			{ButtonInput, 12, DPadUp, Level, AxisDirect},
			{ButtonInput, 13, DPadDown, Level, AxisDirect},
			{ButtonInput, 14, DPadLeft, Level, AxisDirect},
			{ButtonInput, 15, DPadRight, Level, AxisDirect},
		},
	}
}

// LinuxLayout is the mapping for the Linux joystick API (xpad and
// compatible drivers): 8 axes with analog triggers on axes 2 and 5 and the
// d-pad on hat axes 6 and 7, followed by 11 buttons.
func LinuxLayout() Layout {
	return Layout{
		Name: "linux",
		Bindings: []Binding{
			{AxisInput, 0, LeftStickX, Analog, AxisDirect},
			{AxisInput, 1, LeftStickY, Analog, AxisDirect},
			{AxisInput, 2, LeftTrigger, Analog, AxisTrigger},
			{AxisInput, 3, RightStickX, Analog, AxisDirect},
			{AxisInput, 4, RightStickY, Analog, AxisDirect},
			{AxisInput, 5, RightTrigger, Analog, AxisTrigger},
			{AxisInput, 6, DPadLeft, Level, AxisNegative},
			{AxisInput, 6, DPadRight, Level, AxisPositive},
			{AxisInput, 7, DPadUp, Level, AxisNegative},
			{AxisInput, 7, DPadDown, Level, AxisPositive},

			{ButtonInput, 0, ButtonA, Edge, AxisDirect},
			{ButtonInput, 1, ButtonB, Edge, AxisDirect},
			{ButtonInput, 2, ButtonX, Edge, AxisDirect},
			{ButtonInput, 3, ButtonY, Edge, AxisDirect},
			{ButtonInput, 4, LeftBumper, Edge, AxisDirect},
			{ButtonInput, 5, RightBumper, Edge, AxisDirect},
			{ButtonInput, 6, ButtonBack, Edge, AxisDirect},
			{ButtonInput, 7, ButtonStart, Edge, AxisDirect},
			{ButtonInput, 8, ButtonHome, Edge, AxisDirect},
			{ButtonInput, 9, LeftStickButton, Edge, AxisDirect},
			{ButtonInput, 10, RightStickButton, Edge, AxisDirect},
		},
	}
}

// LayoutByName returns the built-in layout called name.
func LayoutByName(name string) (Layout, error) {
	switch name {
	case "standard":
		return StandardLayout(), nil
	case "linux":
		return LinuxLayout(), nil
	default:
		return Layout{}, errors.New().WithData(ErrInvalidLayout, name)
	}
}
