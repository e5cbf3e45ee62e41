package engine

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/emberforge/ember/common"
	"github.com/emberforge/ember/engine/renderer/shader"
	"github.com/emberforge/ember/engine/renderer/target"
)

// circleSegments is the triangle count used to approximate a circle.
const circleSegments = 48

func (e *engine) FillRect(dst *target.RenderTarget, rect common.Rect, color common.Color) error {
	p, err := e.solidProgram(color)
	if err != nil {
		return err
	}
	corners := [4][2]float32{
		{rect.X, rect.Y},
		{rect.X + rect.W, rect.Y},
		{rect.X + rect.W, rect.Y + rect.H},
		{rect.X, rect.Y + rect.H},
	}
	vertices := quadVertices(corners, float32(dst.Width()), float32(dst.Height()), 0, 0, 0, 0)
	return e.renderer.SubmitQuads(p, nil, dst, vertices)
}

func (e *engine) FillCircle(dst *target.RenderTarget, cx, cy, radius float32, color common.Color) error {
	if radius <= 0 {
		return fmt.Errorf("%w: circle radius must be positive, got %g", common.ErrContractViolation, radius)
	}
	p, err := e.solidProgram(color)
	if err != nil {
		return err
	}

	w := float32(dst.Width())
	h := float32(dst.Height())
	ccx, ccy := common.ToClipSpace(cx, cy, w, h)

	vertices := make([]float32, 0, circleSegments*12)
	step := 2 * math32.Pi / circleSegments
	for i := 0; i < circleSegments; i++ {
		a0 := float32(i) * step
		a1 := float32(i+1) * step
		x0, y0 := common.ToClipSpace(cx+radius*math32.Cos(a0), cy+radius*math32.Sin(a0), w, h)
		x1, y1 := common.ToClipSpace(cx+radius*math32.Cos(a1), cy+radius*math32.Sin(a1), w, h)
		vertices = append(vertices,
			ccx, ccy, 0, 0,
			x0, y0, 0, 0,
			x1, y1, 0, 0,
		)
	}
	return e.renderer.SubmitQuads(p, nil, dst, vertices)
}

func (e *engine) Line(dst *target.RenderTarget, x0, y0, x1, y1, thickness float32, color common.Color) error {
	if thickness <= 0 {
		return fmt.Errorf("%w: line thickness must be positive, got %g", common.ErrContractViolation, thickness)
	}
	p, err := e.solidProgram(color)
	if err != nil {
		return err
	}

	dx := x1 - x0
	dy := y1 - y0
	length := math32.Hypot(dx, dy)
	if length == 0 {
		return nil
	}
	// Perpendicular offset of half the thickness on each side.
	nx := -dy / length * thickness / 2
	ny := dx / length * thickness / 2

	corners := [4][2]float32{
		{x0 + nx, y0 + ny},
		{x1 + nx, y1 + ny},
		{x1 - nx, y1 - ny},
		{x0 - nx, y0 - ny},
	}
	vertices := quadVertices(corners, float32(dst.Width()), float32(dst.Height()), 0, 0, 0, 0)
	return e.renderer.SubmitQuads(p, nil, dst, vertices)
}

func (e *engine) FillTriangle(dst *target.RenderTarget, x0, y0, x1, y1, x2, y2 float32, color common.Color) error {
	p, err := e.solidProgram(color)
	if err != nil {
		return err
	}
	w := float32(dst.Width())
	h := float32(dst.Height())
	cx0, cy0 := common.ToClipSpace(x0, y0, w, h)
	cx1, cy1 := common.ToClipSpace(x1, y1, w, h)
	cx2, cy2 := common.ToClipSpace(x2, y2, w, h)
	vertices := []float32{
		cx0, cy0, 0, 0,
		cx1, cy1, 0, 0,
		cx2, cy2, 0, 0,
	}
	return e.renderer.SubmitQuads(p, nil, dst, vertices)
}

// solidProgram stages the fill color on the solid program.
func (e *engine) solidProgram(color common.Color) (shader.Program, error) {
	p := e.renderer.Program(ProgramSolid)
	if err := p.SetUniform("shapeColor", color.R, color.G, color.B, color.A); err != nil {
		return nil, err
	}
	return p, nil
}
