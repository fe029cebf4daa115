package capsense

// filterState is the fixed 5-zero/5-pole IIR low-pass filter applied to
// each raw timing count. The structure is half-band: yv[0], yv[2] and
// yv[4] carry a zero coefficient and are never multiplied in.
type filterState struct {
	xv [6]float64
	yv [6]float64
}

// filterWarmup is the number of samples discarded after a reset, equal
// to the filter order plus one.
const filterWarmup = 6

const (
	gain = 18.94427191
	a1   = -0.05572809
	a3   = -0.63343685
)

func (f *filterState) reset() {
	*f = filterState{}
}

// sample shifts capTotal into the delay line and returns the filtered
// output yv[5].
func (f *filterState) sample(capTotal int) float64 {
	copy(f.xv[0:5], f.xv[1:6])
	f.xv[5] = float64(capTotal) / gain

	copy(f.yv[0:5], f.yv[1:6])
	f.yv[5] = (f.xv[0] + f.xv[5]) +
		5*(f.xv[1]+f.xv[4]) +
		10*(f.xv[2]+f.xv[3]) +
		a1*f.yv[1] +
		a3*f.yv[3]

	return f.yv[5]
}
