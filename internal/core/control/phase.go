package control

// Phase is the racer state machine. Exactly one of Racing, Bursting or
// Finished; Finished is terminal.
type Phase interface {
	Name() string
	isPhase()
}

const (
	PhaseRacing   = "racing"
	PhaseBursting = "bursting"
	PhaseFinished = "finished"
)

// Racing is the default phase. CheckIn counts down to the next burst roll.
type Racing struct {
	CheckIn float64
}

// Bursting is an active hyperburst.
type Bursting struct {
	Remaining float64
	CheckIn   float64
}

// Finished records the arrival. Place starts at 1.
type Finished struct {
	Place int
	Time  float64
}

func (Racing) Name() string   { return PhaseRacing }
func (Bursting) Name() string { return PhaseBursting }
func (Finished) Name() string { return PhaseFinished }

func (Racing) isPhase()   {}
func (Bursting) isPhase() {}
func (Finished) isPhase() {}
