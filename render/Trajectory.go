// Package render draws episode trajectories to image files. It
// replaces an interactive simulator GUI with something that works
// anywhere: a two-panel plot of the end-effector path around the
// target, seen from above and from the side.
package render

import (
	"fmt"
	"math"

	"github.com/fogleman/gg"
	"gonum.org/v1/gonum/mat"
)

// Trajectory records the end-effector positions of one episode
// together with the episode's target.
type Trajectory struct {
	points [][3]float64
	target [3]float64
}

// NewTrajectory returns a new Trajectory for an episode with the given
// target position
func NewTrajectory(target *mat.VecDense) (*Trajectory, error) {
	if target.Len() != 3 {
		return nil, fmt.Errorf("newTrajectory: target has length %v, "+
			"expected 3", target.Len())
	}
	return &Trajectory{
		target: [3]float64{target.AtVec(0), target.AtVec(1), target.AtVec(2)},
	}, nil
}

// Add records the end-effector position of one step
func (t *Trajectory) Add(achieved *mat.VecDense) error {
	if achieved.Len() != 3 {
		return fmt.Errorf("add: position has length %v, expected 3",
			achieved.Len())
	}
	t.points = append(t.points,
		[3]float64{achieved.AtVec(0), achieved.AtVec(1), achieved.AtVec(2)})
	return nil
}

// Len returns the number of recorded steps
func (t *Trajectory) Len() int {
	return len(t.points)
}

// SavePNG renders the trajectory to a PNG file with three panels: the
// XY plane seen from above, the XZ plane seen from the side, and the
// distance to the target over the episode.
func (t *Trajectory) SavePNG(path string, size int) error {
	if len(t.points) == 0 {
		return fmt.Errorf("savePNG: empty trajectory")
	}
	if size < 100 {
		size = 100
	}

	dc := gg.NewContext(3*size, size)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	t.drawPanel(dc, 0, size, 0, 1, "top (xy)")
	t.drawPanel(dc, size, size, 0, 2, "side (xz)")
	t.drawDistancePanel(dc, 2*size, size)

	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("savePNG: %v", err)
	}
	return nil
}

// drawDistancePanel draws the distance between the end effector and
// the target over the steps of the episode.
func (t *Trajectory) drawDistancePanel(dc *gg.Context, left, size int) {
	distances := make([]float64, len(t.points))
	max := 0.0
	for i, p := range t.points {
		dx := p[0] - t.target[0]
		dy := p[1] - t.target[1]
		dz := p[2] - t.target[2]
		distances[i] = math.Sqrt(dx*dx + dy*dy + dz*dz)
		max = math.Max(max, distances[i])
	}
	if max == 0 {
		max = 1
	}
	max *= 1.1

	steps := float64(len(distances))
	if steps == 1 {
		steps = 2
	}

	dc.SetRGB(0.8, 0.8, 0.8)
	dc.SetLineWidth(1)
	dc.DrawRectangle(float64(left), 0, float64(size), float64(size))
	dc.Stroke()
	dc.SetRGB(0.2, 0.2, 0.2)
	dc.DrawStringAnchored("goal distance", float64(left)+8, 12, 0, 0.5)

	dc.SetRGB(0.85, 0.1, 0.1)
	dc.SetLineWidth(2)
	for i, d := range distances {
		x := float64(left) + float64(i)/(steps-1)*float64(size)
		y := float64(size) - d/max*float64(size)
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.Stroke()
}

// drawPanel draws the projection of the trajectory onto the axes
// (a, b) into a square panel starting at pixel column left.
func (t *Trajectory) drawPanel(dc *gg.Context, left, size, a, b int,
	label string) {
	minA, maxA := t.target[a], t.target[a]
	minB, maxB := t.target[b], t.target[b]
	for _, p := range t.points {
		minA, maxA = math.Min(minA, p[a]), math.Max(maxA, p[a])
		minB, maxB = math.Min(minB, p[b]), math.Max(maxB, p[b])
	}

	// Equal padded scale on both axes so distances are not distorted
	span := math.Max(maxA-minA, maxB-minB)
	if span == 0 {
		span = 1
	}
	span *= 1.2
	midA, midB := (minA+maxA)/2, (minB+maxB)/2

	toPixel := func(pa, pb float64) (float64, float64) {
		x := float64(left) + (pa-midA+span/2)/span*float64(size)
		y := float64(size) - (pb-midB+span/2)/span*float64(size)
		return x, y
	}

	// Panel frame and label
	dc.SetRGB(0.8, 0.8, 0.8)
	dc.SetLineWidth(1)
	dc.DrawRectangle(float64(left), 0, float64(size), float64(size))
	dc.Stroke()
	dc.SetRGB(0.2, 0.2, 0.2)
	dc.DrawStringAnchored(label, float64(left)+8, 12, 0, 0.5)

	// End-effector path
	dc.SetRGB(0.1, 0.3, 0.8)
	dc.SetLineWidth(2)
	for i, p := range t.points {
		x, y := toPixel(p[a], p[b])
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.Stroke()

	// Start marker
	sx, sy := toPixel(t.points[0][a], t.points[0][b])
	dc.SetRGB(0.1, 0.3, 0.8)
	dc.DrawCircle(sx, sy, 4)
	dc.Fill()

	// Target cross
	tx, ty := toPixel(t.target[a], t.target[b])
	dc.SetRGB(0.85, 0.1, 0.1)
	dc.SetLineWidth(2)
	dc.DrawLine(tx-6, ty, tx+6, ty)
	dc.DrawLine(tx, ty-6, tx, ty+6)
	dc.Stroke()
}
