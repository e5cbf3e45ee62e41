package pipeline

import "github.com/chewxy/math32"

// GlowIntensity is the time-varying glow brightness,
// (sin(t*scaleTime)+1)*scaleGlow. It is a pure function of its arguments
// and stays within [0, 2*scaleGlow]. The generated sprite shaders embed the
// same expression, so host math and GPU output agree.
//
// Parameters:
//   - t: the frame time in seconds
//   - scaleTime: the frequency scale
//   - scaleGlow: the intensity scale
//
// Returns:
//   - float32: the glow intensity at time t
func GlowIntensity(t, scaleTime, scaleGlow float32) float32 {
	return (math32.Sin(t*scaleTime) + 1) * scaleGlow
}
