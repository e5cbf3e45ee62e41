package pipeline

import "github.com/emberforge/ember/engine/renderer/shader"

// ChannelAdjustment is the per-channel state of the channel-adjust effect.
type ChannelAdjustment struct {
	// Enabled gates whether Delta applies.
	Enabled bool
	// Delta is added to the channel when enabled.
	Delta float32
}

// ChannelAdjustments holds the adjustment state for the R, G, B, and A
// channels in order. The GPU never sees this struct; Pack serializes it to
// the fixed 8-float block layout at the upload boundary.
type ChannelAdjustments [4]ChannelAdjustment

// Pack serializes the adjustments to the fixed wire layout: four deltas
// followed by four enable flags (1 or 0).
//
// Returns:
//   - [8]float32: the packed block payload
func (c ChannelAdjustments) Pack() [8]float32 {
	var out [8]float32
	for i, adj := range c {
		out[i] = adj.Delta
		if adj.Enabled {
			out[4+i] = 1
		}
	}
	return out
}

// Apply stages the packed adjustments on the program's "values" block.
//
// Parameters:
//   - p: the channel-adjust program
//
// Returns:
//   - error: an error when the block size does not match
func (c ChannelAdjustments) Apply(p shader.Program) error {
	packed := c.Pack()
	return p.SetUniformBlock("values", packed[:])
}

// ApplyTo computes the adjusted color for one RGBA quadruple, matching the
// generated shader exactly. Used by the reference backend.
//
// Parameters:
//   - rgba: the input color components
//
// Returns:
//   - [4]float32: the adjusted components
func (c ChannelAdjustments) ApplyTo(rgba [4]float32) [4]float32 {
	for i, adj := range c {
		if adj.Enabled {
			rgba[i] += adj.Delta
		}
	}
	return rgba
}
