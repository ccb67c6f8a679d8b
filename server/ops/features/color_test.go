package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLighten(t *testing.T) {
	testCases := []struct {
		name    string
		color   string
		percent float64
		exp     string
	}{
		{name: "named", color: "green", percent: 0.3, exp: "rgb(77, 166, 77)"},
		{name: "short hex", color: "#555", percent: 0.3, exp: "rgb(136, 136, 136)"},
		{name: "long hex", color: "#ff8c00", percent: 0, exp: "rgb(255, 140, 0)"},
		{name: "rgb", color: "rgb(0, 0, 0)", percent: 1, exp: "rgb(255, 255, 255)"},
		{name: "clamped", color: "black", percent: 2, exp: "rgb(255, 255, 255)"},
		{name: "unparseable", color: "not-a-colour", percent: 0.3, exp: "not-a-colour"},
		{name: "empty", color: "", percent: 0.3, exp: ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.exp, Lighten(tc.color, tc.percent))
		})
	}
}

func TestStatusColor(t *testing.T) {
	assert.Equal(t, Green, StatusColor("up"))
	assert.Equal(t, Green, StatusColor(" Green "))
	assert.Equal(t, Red, StatusColor("down"))
	assert.Equal(t, Red, StatusColor("RED"))
	assert.Equal(t, "", StatusColor("orange"))
	assert.Equal(t, "", StatusColor(""))
}
