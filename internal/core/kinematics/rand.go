package kinematics

// Rand is a splitmix64 generator. A race owns exactly one; given the same
// seed it yields the same sequence on every platform.
type Rand struct {
	state uint64
	draws uint64
}

func NewRand(seed int64) *Rand {
	return &Rand{state: uint64(seed)}
}

func (r *Rand) Uint64() uint64 {
	r.draws++
	r.state += 0x9e3779b97f4a7c15
	z := r.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Float64 returns a uniform draw in [0,1) built from the top 53 bits.
func (r *Rand) Float64() float64 {
	return float64(r.Uint64()>>11) * (1.0 / (1 << 53))
}

// Draws reports how many values have been consumed.
func (r *Rand) Draws() uint64 { return r.draws }
