package features

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

const (
	Green = "green"
	Red   = "red"
	Gray  = "gray"
	Dim   = "#555"
)

// StatusColor maps a live status to a colour, "" when the status says
// nothing about health.
func StatusColor(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "up", "green":
		return Green
	case "down", "red":
		return Red
	default:
		return ""
	}
}

// ParseColor understands CSS colour names, #rgb, #rrggbb and rgb()/rgba().
func ParseColor(s string) (color.RGBA, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return color.RGBA{}, false
	}
	if c, ok := colornames.Map[s]; ok {
		return c, true
	}
	if strings.HasPrefix(s, "#") {
		return parseHex(s[1:])
	}
	if strings.HasPrefix(s, "rgb") {
		return parseRGB(s)
	}
	return color.RGBA{}, false
}

func parseHex(h string) (color.RGBA, bool) {
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.RGBA{}, false
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, false
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, true
}

func parseRGB(s string) (color.RGBA, bool) {
	open := strings.IndexByte(s, '(')
	end := strings.LastIndexByte(s, ')')
	if open < 0 || end < open {
		return color.RGBA{}, false
	}
	parts := strings.Split(s[open+1:end], ",")
	if len(parts) < 3 {
		return color.RGBA{}, false
	}
	var rgb [3]uint8
	for i := 0; i < 3; i++ {
		v, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil || v < 0 || v > 255 {
			return color.RGBA{}, false
		}
		rgb[i] = uint8(v)
	}
	return color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 0xff}, true
}

// Lighten moves every channel percent (0-1) of the way towards white.
// Colours that cannot be parsed are returned unchanged.
func Lighten(s string, percent float64) string {
	c, ok := ParseColor(s)
	if !ok {
		return s
	}
	percent = math.Max(0, math.Min(1, percent))
	l := func(v uint8) int {
		return int(math.Min(255, math.Round(float64(v)+(255-float64(v))*percent)))
	}
	return fmt.Sprintf("rgb(%d, %d, %d)", l(c.R), l(c.G), l(c.B))
}
