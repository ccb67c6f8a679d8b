package api

import (
	"encoding/json"
	"testing"

	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	testCases := []struct {
		in  string
		exp Text
	}{
		{in: `"up"`, exp: "up"},
		{in: `1`, exp: "1"},
		{in: `-2.5`, exp: "-2.5"},
		{in: `true`, exp: "true"},
		{in: `null`, exp: ""},
		{in: `["up"]`, exp: ""},
		{in: `{"a": 1}`, exp: ""},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			var txt Text
			jtest.RequireNil(t, json.Unmarshal([]byte(tc.in), &txt))
			assert.Equal(t, tc.exp, txt)
		})
	}
}

func TestStrings(t *testing.T) {
	testCases := []struct {
		in  string
		exp Strings
	}{
		{in: `["chat", 7, "", null]`, exp: Strings{"chat", "7"}},
		{in: `"chat"`, exp: nil},
		{in: `{"chat": true}`, exp: nil},
		{in: `[]`, exp: nil},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			var l Strings
			jtest.RequireNil(t, json.Unmarshal([]byte(tc.in), &l))
			assert.Equal(t, tc.exp, l)
		})
	}
}

func TestMapDataMalformedMembers(t *testing.T) {
	var m MapData
	err := json.Unmarshal([]byte(`{
		"nodes": [
			{"id": 1, "name": 7, "status": 1, "coordinates": [25, 45]},
			{"id": 2, "name": {"x": 1}, "endpoint": "yes"},
			"garbage",
			3
		],
		"connections": [
			{"from": 1, "to": 2, "status": false, "apps": "chat"},
			{"from": 1, "to": 2, "apps": [1, "vpn"]},
			[1, 2]
		]
	}`), &m)
	jtest.RequireNil(t, err)

	assert.Equal(t, []Node{
		{ID: "1", Name: "7", Status: "1", Coordinates: Coordinates{Lon: 25, Lat: 45}},
		{ID: "2", Endpoint: true},
	}, m.Nodes)
	assert.Equal(t, []Connection{
		{From: "1", To: "2", Status: "false"},
		{From: "1", To: "2", Apps: []string{"1", "vpn"}},
	}, m.Connections)
}

func TestMapDataNotAnObject(t *testing.T) {
	var m MapData
	err := json.Unmarshal([]byte(`[1, 2]`), &m)
	assert.Error(t, err)
}

func TestMapDataMembersNotArrays(t *testing.T) {
	var m MapData
	err := json.Unmarshal([]byte(`{"nodes": {"id": 1}, "connections": "none"}`), &m)
	jtest.RequireNil(t, err)
	assert.Empty(t, m.Nodes)
	assert.Empty(t, m.Connections)
}

func TestDeviceLenientName(t *testing.T) {
	var ds []Device
	err := json.Unmarshal([]byte(`[{"id": 4, "node_id": 1, "name": 12, "coordinates": {"lat": 1, "long": 2}}]`), &ds)
	jtest.RequireNil(t, err)
	assert.Equal(t, []Device{
		{ID: "4", NodeID: "1", Name: "12", Coordinates: &Coordinates{Lon: 2, Lat: 1}},
	}, ds)
}

func TestAppListLenientMembers(t *testing.T) {
	var l AppList
	err := json.Unmarshal([]byte(`[{"name": 5, "nodes": "x", "color": 3}]`), &l)
	jtest.RequireNil(t, err)
	assert.Equal(t, AppList{{Name: "5", Color: "3", HasDetail: true}}, l)
}
