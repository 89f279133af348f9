package viz

import "github.com/kepler-sim/orbitlab/internal/body"

// View projects world-space xy positions onto a braille canvas, origin at
// the center. Extent is the world distance from the center to the nearest
// canvas edge.
type View struct {
	Canvas *Canvas
	extent float64
}

func NewView(w, h int, extent float64) *View {
	return &View{Canvas: NewCanvas(w, h), extent: extent}
}

// SetExtent rescales the view; useful for zooming.
func (v *View) SetExtent(extent float64) {
	if extent > 0 {
		v.extent = extent
	}
}

func (v *View) Extent() float64 { return v.extent }

func (v *View) Clear() { v.Canvas.Clear() }

// Plot marks a world position. The aspect ratio assumes braille cells are
// twice as tall as wide, so circles render roughly round.
func (v *View) Plot(p body.Vec3) {
	subW := v.Canvas.Width * 2
	subH := v.Canvas.Height * 4

	half := float64(subH) / 2
	px := int(float64(subW)/2 + p[0]/v.extent*half)
	py := int(half - p[1]/v.extent*half)
	v.Canvas.Set(px, py)
}

func (v *View) String() string { return v.Canvas.String() }
