// internal/humanoid/glide.go
package humanoid

import (
	"math"
	"math/rand"
	"time"

	"github.com/aquilax/go-perlin"
)

// GlideConfig shapes a cursor glide.
type GlideConfig struct {
	// Fitts's law coefficients in milliseconds: MT = A + B*log2(1 + D/W).
	FittsA      float64
	FittsB      float64
	TargetWidth float64
	// StepsPerSecond is the sampling rate of the path.
	StepsPerSecond float64
	// CurveBow is the maximum sideways bow of the Bezier control points, as a
	// fraction of the distance.
	CurveBow float64
	// PerlinAmplitude is the peak drift in pixels, applied mid-path only.
	PerlinAmplitude float64
	PerlinFrequency float64
}

// DefaultGlideConfig returns settings that produce a short, slightly curved
// glide.
func DefaultGlideConfig() GlideConfig {
	return GlideConfig{
		FittsA:          80,
		FittsB:          120,
		TargetWidth:     30,
		StepsPerSecond:  100,
		CurveBow:        0.15,
		PerlinAmplitude: 2.0,
		PerlinFrequency: 0.8,
	}
}

// Waypoint is one sample of a glide: where the cursor is and when, relative to
// the start of the movement.
type Waypoint struct {
	Pos    Vector2D
	Offset time.Duration
}

// computeEaseInOutCubic accelerates then decelerates.
func computeEaseInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

// glideDuration applies Fitts's law with +/-15% jitter.
func glideDuration(distance float64, cfg GlideConfig, rng *rand.Rand) time.Duration {
	w := cfg.TargetWidth
	if w <= 0 {
		w = 30
	}
	mt := cfg.FittsA + cfg.FittsB*math.Log2(1.0+distance/w)
	mt += mt * (rng.Float64()*0.3 - 0.15)
	if mt < 0 {
		mt = 0
	}
	return time.Duration(mt * float64(time.Millisecond))
}

// Glide plans a cursor movement from one point to another. The path is a cubic
// Bezier bowed to one side, sampled on an ease-in-out time curve and perturbed
// by Perlin drift that fades to zero at both ends. The first waypoint is
// exactly from and the last is exactly to.
func Glide(from, to Vector2D, cfg GlideConfig, rng *rand.Rand) []Waypoint {
	dist := from.Dist(to)
	if dist < 1.0 {
		return []Waypoint{{Pos: to}}
	}

	duration := glideDuration(dist, cfg, rng)
	steps := int(duration.Seconds() * cfg.StepsPerSecond)
	if steps < 2 {
		steps = 2
	}

	dir := to.Sub(from).Normalize()
	side := dir.Perp()
	bow1 := (rng.Float64()*2 - 1) * cfg.CurveBow * dist
	bow2 := (rng.Float64()*2 - 1) * cfg.CurveBow * dist
	p0, p3 := from, to
	p1 := from.Add(dir.Mul(dist / 3.0)).Add(side.Mul(bow1))
	p2 := from.Add(dir.Mul(dist * 2.0 / 3.0)).Add(side.Mul(bow2))

	// Standard Perlin parameters, separate seeds per axis.
	seed := rng.Int63()
	noiseX := perlin.NewPerlin(2.0, 2.0, 3, seed)
	noiseY := perlin.NewPerlin(2.0, 2.0, 3, seed+1)

	path := make([]Waypoint, steps)
	for i := 0; i < steps; i++ {
		t := float64(i) / float64(steps-1)
		s := computeEaseInOutCubic(t)

		omt := 1.0 - s
		pos := p0.Mul(omt * omt * omt).
			Add(p1.Mul(3 * omt * omt * s)).
			Add(p2.Mul(3 * omt * s * s)).
			Add(p3.Mul(s * s * s))

		elapsed := t * duration.Seconds()
		envelope := math.Sin(math.Pi * t)
		drift := Vector2D{
			X: noiseX.Noise1D(elapsed*cfg.PerlinFrequency) * cfg.PerlinAmplitude * envelope,
			Y: noiseY.Noise1D(elapsed*cfg.PerlinFrequency) * cfg.PerlinAmplitude * envelope,
		}

		path[i] = Waypoint{
			Pos:    pos.Add(drift),
			Offset: time.Duration(t * float64(duration)),
		}
	}

	// sin(pi) is not exactly zero in floating point.
	path[0].Pos = from
	path[steps-1].Pos = to
	return path
}
