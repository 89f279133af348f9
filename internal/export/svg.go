package export

import (
	"fmt"
	"strings"

	"github.com/kepler-sim/orbitlab/internal/body"
	"github.com/kepler-sim/orbitlab/internal/storage"
)

// Palette for trajectory strokes, cycled when a run has more bodies than
// colors.
var strokeColors = []string{
	"#00ff00", "#00bfff", "#ff6347", "#ffd700", "#da70d6", "#7fffd4",
}

// OrbitsToSVG renders the xy-plane trajectories of a recorded run, one
// path per body. Bodies that disappear mid-run (merged away) simply have
// shorter paths. Each merge is marked with a circle at the survivor's
// first post-merge position.
func OrbitsToSVG(snaps []storage.Snapshot, events []storage.EncounterEvent, width, height int) string {
	if len(snaps) < 2 {
		return ""
	}

	// Gather per-body tracks in first-seen order.
	type track struct {
		id string
		xs []float64
		ys []float64
	}
	var tracks []*track
	index := make(map[string]*track)
	for _, snap := range snaps {
		for _, b := range snap.Bodies {
			tr, ok := index[b.ID]
			if !ok {
				tr = &track{id: b.ID}
				index[b.ID] = tr
				tracks = append(tracks, tr)
			}
			tr.xs = append(tr.xs, b.Pos[0])
			tr.ys = append(tr.ys, b.Pos[1])
		}
	}

	// Bounds over everything, padded 10%.
	minX, maxX := tracks[0].xs[0], tracks[0].xs[0]
	minY, maxY := tracks[0].ys[0], tracks[0].ys[0]
	for _, tr := range tracks {
		for i := range tr.xs {
			if tr.xs[i] < minX {
				minX = tr.xs[i]
			}
			if tr.xs[i] > maxX {
				maxX = tr.xs[i]
			}
			if tr.ys[i] < minY {
				minY = tr.ys[i]
			}
			if tr.ys[i] > maxY {
				maxY = tr.ys[i]
			}
		}
	}
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	toPx := func(x, y float64) (float64, float64) {
		px := (x - minX) / rangeX * float64(width)
		py := float64(height) - (y-minY)/rangeY*float64(height)
		return px, py
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	for i, tr := range tracks {
		if len(tr.xs) < 2 {
			continue
		}
		color := strokeColors[i%len(strokeColors)]
		sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="M`, color))
		for j := range tr.xs {
			x, y := toPx(tr.xs[j], tr.ys[j])
			if j == 0 {
				sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
			} else {
				sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
			}
		}
		sb.WriteString("\"/>\n")
	}

	for _, ev := range events {
		if _, ok := index[ev.Survivor]; !ok {
			continue
		}
		pos := mergePosition(snaps, ev)
		x, y := toPx(pos[0], pos[1])
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="4" fill="none" stroke="#ffffff" stroke-width="1"/>
`, x, y))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// mergePosition finds the survivor's position at the first snapshot at or
// after the event time, falling back to its last known position.
func mergePosition(snaps []storage.Snapshot, ev storage.EncounterEvent) body.Vec3 {
	for _, snap := range snaps {
		if snap.Time < ev.Time {
			continue
		}
		for _, b := range snap.Bodies {
			if b.ID == ev.Survivor {
				return b.Pos
			}
		}
	}
	for i := len(snaps) - 1; i >= 0; i-- {
		for _, b := range snaps[i].Bodies {
			if b.ID == ev.Survivor {
				return b.Pos
			}
		}
	}
	return body.Vec3{}
}
