package features

import (
	"context"
	"fmt"

	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"
	"github.com/luno/qkdmap/api"
	"github.com/luno/qkdmap/server/ops/geo"
	"github.com/paulmach/orb"
)

// GlobalApp selects the network-wide status view.
const GlobalApp = "global"

type Input struct {
	Nodes       []api.Node
	Connections []api.Connection
	// Apps in the order the backend listed them.
	Apps     []api.App
	Selected string
}

type NodeFeature struct {
	ID       string
	Node     api.Node
	Position orb.Point
	Color    string
	Dim      bool
}

type ConnectionFeature struct {
	ID     string
	From   api.Node
	To     api.Node
	Status string
	Apps   []string
	Path   orb.LineString
	Color  string
	Dim    bool
	// Visible connections are drawn in full colour.
	Visible bool
	// Animated connections carry key pairs. Under an app this needs the
	// app among the declared apps, an app node list alone is not enough.
	Animated bool
}

type InvalidConnection struct {
	From api.Ref
	To   api.Ref
}

func (c InvalidConnection) String() string {
	return fmt.Sprintf("Invalid connection: %s -> %s", c.From, c.To)
}

type Set struct {
	Selected    string
	Nodes       []NodeFeature
	Connections []ConnectionFeature
	Invalid     []InvalidConnection
}

// Connection looks up a connection feature by id.
func (s Set) Connection(id string) (ConnectionFeature, bool) {
	for _, c := range s.Connections {
		if c.ID == id {
			return c, true
		}
	}
	return ConnectionFeature{}, false
}

// Node looks up a node feature by id.
func (s Set) Node(id string) (NodeFeature, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeFeature{}, false
}

func NodeFeatureID(i int, n api.Node) string {
	return fmt.Sprintf("node:%d:%s", i, n.ID)
}

func ConnectionFeatureID(i int) string {
	return fmt.Sprintf("connection:%d", i)
}

// access answers reachability questions for the selected app.
type access struct {
	global bool
	refs   map[api.Ref]bool
}

func newAccess(in Input) access {
	if in.Selected == GlobalApp || in.Selected == "" {
		return access{global: true}
	}
	a := access{refs: make(map[api.Ref]bool)}
	for _, app := range in.Apps {
		if app.Name != in.Selected {
			continue
		}
		for _, r := range app.Nodes {
			a.refs[r] = true
		}
	}
	return a
}

func (a access) reachable(n api.Node) bool {
	return listsNode(a.refs, n)
}

func listsNode(refs map[api.Ref]bool, n api.Node) bool {
	return (n.ID != "" && refs[n.ID]) || (n.Name != "" && refs[api.Ref(n.Name)])
}

func findNode(nodes []api.Node, ref api.Ref) (api.Node, bool) {
	for _, n := range nodes {
		if n.Matches(ref) {
			return n, true
		}
	}
	return api.Node{}, false
}

// Build styles nodes and connections for the selected app. It never fails,
// connections with unknown endpoints are reported in Set.Invalid.
func Build(ctx context.Context, in Input) Set {
	acc := newAccess(in)
	set := Set{Selected: in.Selected}
	if set.Selected == "" {
		set.Selected = GlobalApp
	}

	for i, n := range in.Nodes {
		nf := NodeFeature{
			ID:       NodeFeatureID(i, n),
			Node:     n,
			Position: geo.ProjectCoordinates(n.Coordinates),
		}
		if acc.global {
			nf.Color = StatusColor(n.Status)
		} else if acc.reachable(n) {
			nf.Color = Green
		} else {
			nf.Dim = true
		}
		set.Nodes = append(set.Nodes, nf)
	}

	appNodes := make([]map[api.Ref]bool, len(in.Apps))
	for i, app := range in.Apps {
		appNodes[i] = make(map[api.Ref]bool, len(app.Nodes))
		for _, r := range app.Nodes {
			appNodes[i][r] = true
		}
	}

	for i, c := range in.Connections {
		from, okFrom := findNode(in.Nodes, c.From)
		to, okTo := findNode(in.Nodes, c.To)
		if !okFrom || !okTo {
			inv := InvalidConnection{From: c.From, To: c.To}
			log.Info(ctx, inv.String(), j.MKV{"from": c.From, "to": c.To})
			set.Invalid = append(set.Invalid, inv)
			continue
		}

		cf := ConnectionFeature{
			ID:     ConnectionFeatureID(i),
			From:   from,
			To:     to,
			Status: c.Status,
			Apps:   effectiveApps(c, from, to, in.Apps, appNodes),
			Path: orb.LineString{
				geo.ProjectCoordinates(from.Coordinates),
				geo.ProjectCoordinates(to.Coordinates),
			},
		}

		statusColor := StatusColor(c.Status)
		if statusColor == "" {
			statusColor = c.Status
		}
		if statusColor == "" {
			statusColor = Gray
		}

		if acc.global {
			cf.Color = statusColor
			cf.Visible = true
			cf.Animated = true
		} else if contains(cf.Apps, in.Selected) && acc.reachable(from) && acc.reachable(to) {
			cf.Color = Green
			cf.Visible = true
			cf.Animated = contains(c.Apps, in.Selected)
		} else {
			cf.Color = statusColor
			cf.Dim = true
		}
		set.Connections = append(set.Connections, cf)
	}
	return set
}

func effectiveApps(c api.Connection, from, to api.Node, apps []api.App, appNodes []map[api.Ref]bool) []string {
	ret := make([]string, 0, len(c.Apps))
	seen := make(map[string]bool)
	for _, a := range c.Apps {
		if seen[a] {
			continue
		}
		seen[a] = true
		ret = append(ret, a)
	}
	for i, app := range apps {
		if !app.HasDetail || seen[app.Name] {
			continue
		}
		if listsNode(appNodes[i], from) && listsNode(appNodes[i], to) {
			seen[app.Name] = true
			ret = append(ret, app.Name)
		}
	}
	return ret
}

func contains(l []string, s string) bool {
	for _, v := range l {
		if v == s {
			return true
		}
	}
	return false
}
