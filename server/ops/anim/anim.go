package anim

import (
	"fmt"
	"math"
	"time"

	"github.com/luno/qkdmap/server/ops/features"
	"github.com/luno/qkdmap/server/ops/scene"
	"github.com/paulmach/orb"
)

const (
	SpawnInterval = 3000 * time.Millisecond
	// PixelSpeed is how far a marker moves along its track per frame.
	PixelSpeed = 2
	// MinPixelLength hides markers on tracks drawn shorter than this.
	MinPixelLength = 200
)

// Track is the geometry a key pair travels along.
type Track struct {
	ID        string
	From      orb.Point
	To        orb.Point
	Length    float64
	Center    orb.Point
	LastSpawn time.Time
	Spawned   bool
}

func NewTrack(id string, from, to orb.Point) Track {
	dx, dy := to.X()-from.X(), to.Y()-from.Y()
	return Track{
		ID:     id,
		From:   from,
		To:     to,
		Length: math.Hypot(dx, dy),
		Center: orb.Point{from.X() + dx/2, from.Y() + dy/2},
	}
}

func (t Track) usable() bool {
	return t.Length > 0 && !math.IsInf(t.Length, 0) && !math.IsNaN(t.Length) &&
		finite(t.Center)
}

func finite(p orb.Point) bool {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// TracksFor returns a track per connection that carries key animations.
func TracksFor(s features.Set) []Track {
	var ret []Track
	for _, c := range s.Connections {
		if !c.Animated || len(c.Path) < 2 {
			continue
		}
		ret = append(ret, NewTrack(c.ID, c.Path[0], c.Path[len(c.Path)-1]))
	}
	return ret
}

// Pair is two key markers leaving the centre of a track in opposite
// directions.
type Pair struct {
	ID       int64
	Track    int
	A        orb.Point
	B        orb.Point
	Progress float64
	Hidden   bool
}

func (p Pair) MarkerA() string {
	return fmt.Sprintf("key:%d:a", p.ID)
}

func (p Pair) MarkerB() string {
	return fmt.Sprintf("key:%d:b", p.ID)
}

type State struct {
	Tracks []Track
	Pairs  []Pair
	Frames int64
	nextID int64
}

func NewState(tracks []Track) State {
	return State{Tracks: tracks}
}

// Effects is what a frame changed, in the order it must be applied.
type Effects struct {
	Spawned []Pair
	Moved   []Pair
	Removed []Pair
}

func (e Effects) Empty() bool {
	return len(e.Spawned) == 0 && len(e.Moved) == 0 && len(e.Removed) == 0
}

// Step advances the animation by one frame. The state passed in is not
// modified.
func Step(s State, now time.Time, resolution float64) (State, Effects) {
	if resolution <= 0 || math.IsNaN(resolution) || math.IsInf(resolution, 0) {
		resolution = 1
	}

	next := State{
		Tracks: make([]Track, len(s.Tracks)),
		Pairs:  make([]Pair, 0, len(s.Pairs)+len(s.Tracks)),
		Frames: s.Frames + 1,
		nextID: s.nextID,
	}
	copy(next.Tracks, s.Tracks)

	var eff Effects
	pairs := append([]Pair(nil), s.Pairs...)
	for i, t := range next.Tracks {
		if !t.usable() {
			continue
		}
		if t.Spawned && now.Sub(t.LastSpawn) < SpawnInterval {
			continue
		}
		next.Tracks[i].LastSpawn = now
		next.Tracks[i].Spawned = true
		next.nextID++
		p := Pair{ID: next.nextID, Track: i, A: t.Center, B: t.Center}
		eff.Spawned = append(eff.Spawned, p)
		pairs = append(pairs, p)
	}

	for _, p := range pairs {
		if p.Track < 0 || p.Track >= len(next.Tracks) {
			eff.Removed = append(eff.Removed, p)
			continue
		}
		t := next.Tracks[p.Track]
		if !t.usable() {
			eff.Removed = append(eff.Removed, p)
			continue
		}

		p.Hidden = t.Length/resolution < MinPixelLength
		p.Progress += PixelSpeed * resolution / t.Length
		if p.Progress >= 1 {
			eff.Removed = append(eff.Removed, p)
			continue
		}

		dx, dy := t.To.X()-t.From.X(), t.To.Y()-t.From.Y()
		p.A = orb.Point{t.Center.X() - dx*p.Progress/2, t.Center.Y() - dy*p.Progress/2}
		p.B = orb.Point{t.Center.X() + dx*p.Progress/2, t.Center.Y() + dy*p.Progress/2}
		eff.Moved = append(eff.Moved, p)
		next.Pairs = append(next.Pairs, p)
	}
	return next, eff
}

// Apply mirrors a frame's effects onto the key layer of the canvas.
func Apply(c scene.Canvas, e Effects) {
	for _, p := range e.Spawned {
		c.AddPoint(scene.LayerKeys, p.MarkerA(), p.A, scene.Props{"isKey": true}, features.KeyStyle())
		c.AddPoint(scene.LayerKeys, p.MarkerB(), p.B, scene.Props{"isKey": true}, features.KeyStyle())
	}
	for _, p := range e.Moved {
		var style = features.KeyStyle()
		if p.Hidden {
			style = nil
		}
		c.SetStyle(p.MarkerA(), style)
		c.SetStyle(p.MarkerB(), style)
		c.SetPosition(p.MarkerA(), p.A)
		c.SetPosition(p.MarkerB(), p.B)
	}
	for _, p := range e.Removed {
		c.Remove(p.MarkerA())
		c.Remove(p.MarkerB())
	}
}

// Clear removes every marker of the state from the canvas.
func Clear(c scene.Canvas, s State) {
	for _, p := range s.Pairs {
		c.Remove(p.MarkerA())
		c.Remove(p.MarkerB())
	}
}
