package logic

// PhaseCount is the number of phases in one step cycle.
const PhaseCount = 4

// Phases holds the energization pattern for lines 1..4, one coil per phase.
var Phases = [PhaseCount][4]bool{
	{false, false, false, true},
	{false, false, true, false},
	{false, true, false, false},
	{true, false, false, false},
}

// Mode is the derived actuator state.
type Mode string

const (
	ModeIdle        Mode = "IDLE"
	ModeSeeking     Mode = "SEEKING"
	ModeCalibrating Mode = "CALIBRATING"
)

// StepKind is the action a tick asks of the stepper driver.
type StepKind int

const (
	StepRelease StepKind = iota
	StepForward
	StepBackward
)

// Step is the result of a tick: what to drive and which phase to energize.
// Phase is meaningless for StepRelease.
type Step struct {
	Kind  StepKind
	Phase int
}

// ActuatorState is a point-in-time copy of the actuator.
type ActuatorState struct {
	Position      int
	Target        int
	Phase         int
	Calibrating   bool
	HasCalibrated bool
	Mode          Mode
	AllExtended   bool
	Buckets       int
}

// Actuator tracks stepper position against a target.
// Not safe for concurrent use; it is owned by a single task.
type Actuator struct {
	geo           Geometry
	position      int
	target        int
	phase         int
	calibrating   bool
	hasCalibrated bool
}

// NewActuator creates an actuator at position zero.
func NewActuator(geo Geometry) *Actuator {
	return &Actuator{geo: geo}
}

// AllExtended reports whether every bucket has been extended.
func (a *Actuator) AllExtended() bool {
	return a.target >= a.geo.Limit()
}

func (a *Actuator) movePending() bool {
	return a.target > a.position
}

// ExtendBucket advances the target by one bucket. It is a no-op when all
// buckets are extended or a move is still pending. The target is capped at
// the geometry limit. Returns whether the target changed.
func (a *Actuator) ExtendBucket() bool {
	if a.AllExtended() || a.movePending() {
		return false
	}
	step := a.geo.StepsPerBucket
	if a.target == 0 {
		step = a.geo.FirstBucketSteps
	}
	a.target = min(a.target+step, a.geo.Limit())
	return true
}

// EjectAll pushes the target three buckets further, past the normal ceiling
// if needed. It always clears HasCalibrated. Returns whether the target
// changed.
func (a *Actuator) EjectAll() bool {
	a.hasCalibrated = false
	if a.movePending() {
		return false
	}
	a.target += 3 * a.geo.StepsPerBucket
	return true
}

// StartCalibration begins homing toward the limit switch.
// HasCalibrated is set immediately, before homing completes.
func (a *Actuator) StartCalibration() {
	a.calibrating = true
	a.hasCalibrated = true
}

// OnLimitEdge handles a limit switch edge. A falling edge while calibrating
// redefines home. Returns whether calibration completed.
func (a *Actuator) OnLimitEdge(e Edge) bool {
	if !a.calibrating || e != EdgeFalling {
		return false
	}
	a.position = 0
	a.target = 0
	a.calibrating = false
	return true
}

// Tick moves the actuator one step toward its target. Calibration always
// seeks backward regardless of the target.
func (a *Actuator) Tick() Step {
	switch {
	case a.calibrating || a.target < a.position:
		a.phase = (a.phase - 1 + PhaseCount) % PhaseCount
		a.position--
		return Step{Kind: StepBackward, Phase: a.phase}
	case a.target > a.position:
		a.phase = (a.phase + 1) % PhaseCount
		a.position++
		return Step{Kind: StepForward, Phase: a.phase}
	default:
		return Step{Kind: StepRelease}
	}
}

// Buckets returns how many buckets the current target has reached.
func (a *Actuator) Buckets() int {
	if a.target <= 0 {
		return 0
	}
	if a.target <= a.geo.FirstBucketSteps || a.geo.StepsPerBucket <= 0 {
		return 1
	}
	return 1 + (a.target-a.geo.FirstBucketSteps+a.geo.StepsPerBucket-1)/a.geo.StepsPerBucket
}

// State returns a copy of the actuator state.
func (a *Actuator) State() ActuatorState {
	mode := ModeIdle
	switch {
	case a.calibrating:
		mode = ModeCalibrating
	case a.target != a.position:
		mode = ModeSeeking
	}
	return ActuatorState{
		Position:      a.position,
		Target:        a.target,
		Phase:         a.phase,
		Calibrating:   a.calibrating,
		HasCalibrated: a.hasCalibrated,
		Mode:          mode,
		AllExtended:   a.AllExtended(),
		Buckets:       a.Buckets(),
	}
}
