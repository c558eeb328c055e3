// Package master applies a light post chain to bounced stereo mixes.
// Processors run frame by frame over an interleaved buffer; a processor
// that rings out past the input (reverb) reports a tail, and the chain
// grows the bounce by that much instead of cutting the decay off.
package master

import "math"

// Processor shapes one stereo frame at a time.
type Processor interface {
	Frame(l, r float32) (float32, float32)
	// Tail is how many seconds the processor keeps producing signal
	// after its input goes silent.
	Tail() float64
}

// Chain runs processors in order over an interleaved stereo buffer.
type Chain struct {
	rate  int
	procs []Processor
}

func NewChain(rate int, procs ...Processor) *Chain {
	return &Chain{rate: rate, procs: procs}
}

// Empty reports whether the chain would leave the buffer untouched.
func (c *Chain) Empty() bool { return len(c.procs) == 0 }

// Apply processes buf and returns the result, extended by the longest
// processor tail. buf itself is not modified.
func (c *Chain) Apply(buf []float32) []float32 {
	if len(c.procs) == 0 {
		return buf
	}
	var tail float64
	for _, p := range c.procs {
		if t := p.Tail(); t > tail {
			tail = t
		}
	}
	frames := len(buf) / 2
	tailFrames := int(math.Ceil(tail * float64(c.rate)))
	out := make([]float32, (frames+tailFrames)*2)

	for i := 0; i < frames+tailFrames; i++ {
		var l, r float32
		if i < frames {
			l, r = buf[2*i], buf[2*i+1]
		}
		for _, p := range c.procs {
			l, r = p.Frame(l, r)
		}
		out[2*i], out[2*i+1] = l, r
	}
	return out
}

// Compressor reduces dynamic range with a per-side envelope follower.
type Compressor struct {
	threshold float32
	ratio     float32
	attack    float32
	release   float32
	makeup    float32
	envL      float32
	envR      float32
}

// NewCompressor builds a compressor. thresholdDB is where gain
// reduction starts, ratio the slope above it (3 means 3:1), attack and
// release the envelope times, makeupDB the output gain.
func NewCompressor(rate int, thresholdDB, ratio, attackMs, releaseMs, makeupDB float64) *Compressor {
	sr := float64(rate)
	return &Compressor{
		threshold: float32(math.Pow(10, thresholdDB/20)),
		ratio:     float32(ratio),
		attack:    float32(1.0 - math.Exp(-1.0/(attackMs*sr/1000.0))),
		release:   float32(1.0 - math.Exp(-1.0/(releaseMs*sr/1000.0))),
		makeup:    float32(math.Pow(10, makeupDB/20)),
	}
}

func (c *Compressor) Frame(l, r float32) (float32, float32) {
	c.envL = follow(c.envL, abs32(l), c.attack, c.release)
	c.envR = follow(c.envR, abs32(r), c.attack, c.release)
	return l * c.gain(c.envL) * c.makeup, r * c.gain(c.envR) * c.makeup
}

func (c *Compressor) Tail() float64 { return 0 }

func (c *Compressor) gain(env float32) float32 {
	if env <= c.threshold || c.threshold <= 0 {
		return 1.0
	}
	over := env / c.threshold
	return float32(math.Pow(float64(over), float64(1.0/c.ratio-1)))
}

func follow(env, level, attack, release float32) float32 {
	if level > env {
		return env + attack*(level-env)
	}
	return env + release*(level-env)
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// Reverb is a Schroeder reverb: four parallel combs into two allpass
// stages, mixed behind a wet control.
type Reverb struct {
	combs   [4]comb
	allpass [2]allpass
	wet     float32
	tailSec float64
}

type comb struct {
	buf []float32
	pos int
	fb  float32
}

type allpass struct {
	buf []float32
	pos int
	fb  float32
}

// NewReverb builds a reverb. room 0..1 scales the delay lengths,
// feedback 0..1 the decay time, wet 0..1 the mix.
func NewReverb(rate int, room, feedback, wet float64) *Reverb {
	base := int(float64(rate) * room * 0.05)
	if base < 10 {
		base = 10
	}
	fb := clamp(feedback, 0, 0.95)
	r := &Reverb{wet: float32(clamp(wet, 0, 1))}

	// Prime-ish length ratios to keep the combs from resonating.
	lengths := [4]int{base, base * 1117 / 1000, base * 1271 / 1000, base * 1437 / 1000}
	for i := range r.combs {
		r.combs[i] = comb{buf: make([]float32, lengths[i]), fb: float32(fb)}
	}
	apLengths := [2]int{base * 347 / 1000, base * 213 / 1000}
	for i := range r.allpass {
		n := apLengths[i]
		if n < 1 {
			n = 1
		}
		r.allpass[i] = allpass{buf: make([]float32, n), fb: 0.5}
	}

	// Ring-out to roughly -60 dB through the longest comb.
	if fb > 0 {
		passes := math.Log(0.001) / math.Log(fb)
		r.tailSec = clamp(float64(lengths[3])/float64(rate)*passes, 0, 4)
	}
	return r
}

func (r *Reverb) Frame(l, r2 float32) (float32, float32) {
	mono := (l + r2) * 0.5
	var out float32
	for i := range r.combs {
		out += r.combs[i].step(mono)
	}
	out *= 0.25
	for i := range r.allpass {
		out = r.allpass[i].step(out)
	}
	return l*(1-r.wet) + out*r.wet, r2*(1-r.wet) + out*r.wet
}

func (r *Reverb) Tail() float64 { return r.tailSec }

func (c *comb) step(in float32) float32 {
	out := c.buf[c.pos]
	c.buf[c.pos] = in + out*c.fb
	c.pos++
	if c.pos >= len(c.buf) {
		c.pos = 0
	}
	return out
}

func (a *allpass) step(in float32) float32 {
	delayed := a.buf[a.pos]
	out := -in + delayed
	a.buf[a.pos] = in + delayed*a.fb
	a.pos++
	if a.pos >= len(a.buf) {
		a.pos = 0
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
