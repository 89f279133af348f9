package viz

import (
	"strings"
	"testing"

	"github.com/kepler-sim/orbitlab/internal/body"
)

func TestCanvas_SetAndClear(t *testing.T) {
	c := NewCanvas(4, 2)

	empty := c.String()
	if strings.ContainsRune(empty, ' ') {
		t.Error("empty canvas should be all braille blanks, not spaces")
	}

	c.Set(0, 0)
	if c.String() == empty {
		t.Error("Set should change the canvas")
	}

	c.Clear()
	if c.String() != empty {
		t.Error("Clear should restore the empty canvas")
	}
}

func TestCanvas_OutOfBoundsIgnored(t *testing.T) {
	c := NewCanvas(2, 2)
	before := c.String()

	c.Set(-1, 0)
	c.Set(0, -5)
	c.Set(100, 0)
	c.Set(0, 100)

	if c.String() != before {
		t.Error("out-of-bounds Set must be a no-op")
	}
}

func TestView_CenterMapsToMiddle(t *testing.T) {
	v := NewView(10, 10, 2.0)
	v.Plot(body.Vec3{0, 0, 0})

	lines := strings.Split(v.String(), "\n")
	if len(lines) != 10 {
		t.Fatalf("lines = %d", len(lines))
	}

	marked := -1
	for i, line := range lines {
		for _, r := range line {
			if r != 0x2800 {
				marked = i
			}
		}
	}
	if marked != 5 {
		t.Errorf("origin plotted on row %d, want middle row 5", marked)
	}
}

func TestView_SetExtent(t *testing.T) {
	v := NewView(10, 10, 2.0)
	v.SetExtent(-1)
	if v.Extent() != 2.0 {
		t.Error("non-positive extent must be ignored")
	}
	v.SetExtent(4)
	if v.Extent() != 4.0 {
		t.Error("SetExtent should apply")
	}
}
