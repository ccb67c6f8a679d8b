package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Ref identifies a node by id or by name. The backend sends ids both as
// strings and as numbers so both are accepted.
type Ref string

func (r *Ref) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*r = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = Ref(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		// Anything else is not a usable reference.
		*r = ""
		return nil
	}
	*r = Ref(n.String())
	return nil
}

func (r Ref) String() string {
	return string(r)
}

// Coordinates are always held as lon/lat. On the wire they are either a
// [lon, lat] pair or an object with lat and long members.
type Coordinates struct {
	Lon float64
	Lat float64
}

func (c Coordinates) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{c.Lon, c.Lat})
}

func (c *Coordinates) UnmarshalJSON(b []byte) error {
	*c = Coordinates{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	switch b[0] {
	case '[':
		var pair []json.RawMessage
		if err := json.Unmarshal(b, &pair); err != nil {
			return nil
		}
		if len(pair) > 0 {
			c.Lon = number(pair[0])
		}
		if len(pair) > 1 {
			c.Lat = number(pair[1])
		}
	case '{':
		var obj struct {
			Lat  json.RawMessage `json:"lat"`
			Long json.RawMessage `json:"long"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return nil
		}
		c.Lon = number(obj.Long)
		c.Lat = number(obj.Lat)
	}
	return nil
}

func number(b json.RawMessage) float64 {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// Truthy decodes any JSON value using javascript truthiness.
type Truthy bool

func (t *Truthy) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch s {
	case "", "null", "false", "0", `""`:
		*t = false
	default:
		f, err := strconv.ParseFloat(s, 64)
		*t = Truthy(err != nil || f != 0)
	}
	return nil
}

// Text is a string field the backend does not always send as a string.
// Numbers and booleans keep their literal form, anything else is empty.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	*t = ""
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err == nil {
			*t = Text(s)
		}
	case 't', 'f':
		*t = Text(b)
	case '[', '{', 'n':
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err == nil {
			*t = Text(n.String())
		}
	}
	return nil
}

// Strings is a list of Text. A value that is not an array is an empty list.
type Strings []string

func (l *Strings) UnmarshalJSON(b []byte) error {
	*l = nil
	var raw []Text
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil
	}
	for _, t := range raw {
		if t != "" {
			*l = append(*l, string(t))
		}
	}
	return nil
}

type Node struct {
	ID          Ref         `json:"id"`
	Name        string      `json:"name"`
	Coordinates Coordinates `json:"coordinates"`
	Endpoint    Truthy      `json:"endpoint"`
	Status      string      `json:"status,omitempty"`
}

// UnmarshalJSON never fails, a malformed member is left empty.
func (n *Node) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID          Ref         `json:"id"`
		Name        Text        `json:"name"`
		Coordinates Coordinates `json:"coordinates"`
		Endpoint    Truthy      `json:"endpoint"`
		Status      Text        `json:"status"`
	}
	_ = json.Unmarshal(b, &raw)
	*n = Node{
		ID:          raw.ID,
		Name:        string(raw.Name),
		Coordinates: raw.Coordinates,
		Endpoint:    raw.Endpoint,
		Status:      string(raw.Status),
	}
	return nil
}

// Label is the name shown on the map, falling back to the id.
func (n Node) Label() string {
	if n.Name != "" {
		return n.Name
	}
	return string(n.ID)
}

// Matches reports whether ref points at this node by id or by name.
func (n Node) Matches(ref Ref) bool {
	if ref == "" {
		return false
	}
	return n.ID == ref || Ref(n.Name) == ref
}

type Connection struct {
	From   Ref      `json:"from"`
	To     Ref      `json:"to"`
	Status string   `json:"status,omitempty"`
	Apps   []string `json:"apps,omitempty"`
}

func (c *Connection) UnmarshalJSON(b []byte) error {
	var raw struct {
		From   Ref     `json:"from"`
		To     Ref     `json:"to"`
		Status Text    `json:"status"`
		Apps   Strings `json:"apps"`
	}
	_ = json.Unmarshal(b, &raw)
	*c = Connection{
		From:   raw.From,
		To:     raw.To,
		Status: string(raw.Status),
		Apps:   raw.Apps,
	}
	return nil
}

type MapData struct {
	Nodes       []Node       `json:"nodes"`
	Connections []Connection `json:"connections"`
}

// UnmarshalJSON only fails when the payload is not an object. Nodes and
// connections that are not objects are dropped.
func (m *MapData) UnmarshalJSON(b []byte) error {
	var raw struct {
		Nodes       json.RawMessage `json:"nodes"`
		Connections json.RawMessage `json:"connections"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*m = MapData{}
	for _, r := range objects(raw.Nodes) {
		var n Node
		_ = json.Unmarshal(r, &n)
		m.Nodes = append(m.Nodes, n)
	}
	for _, r := range objects(raw.Connections) {
		var c Connection
		_ = json.Unmarshal(r, &c)
		m.Connections = append(m.Connections, c)
	}
	return nil
}

// objects returns the object elements of a JSON array.
func objects(b json.RawMessage) []json.RawMessage {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil
	}
	ret := raw[:0]
	for _, r := range raw {
		r = bytes.TrimSpace(r)
		if len(r) > 0 && r[0] == '{' {
			ret = append(ret, r)
		}
	}
	return ret
}

const DefaultAppColor = "#ff8c00"

// App is an application as listed by GET /api/apps. HasDetail is false
// when the backend only sent the name.
type App struct {
	Name      string `json:"name"`
	Nodes     []Ref  `json:"nodes,omitempty"`
	Color     string `json:"color,omitempty"`
	HasDetail bool   `json:"-"`
}

// AppList decodes the mixed array of names and app objects.
type AppList []App

func (l *AppList) UnmarshalJSON(b []byte) error {
	*l = nil
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		// Not an array, nothing to list.
		return nil
	}
	for _, r := range raw {
		r = bytes.TrimSpace(r)
		if len(r) == 0 {
			continue
		}
		switch r[0] {
		case '"':
			var name string
			if err := json.Unmarshal(r, &name); err != nil || name == "" {
				continue
			}
			*l = append(*l, App{Name: name})
		case '{':
			var obj struct {
				Name  Text            `json:"name"`
				Nodes json.RawMessage `json:"nodes"`
				Color Text            `json:"color"`
			}
			_ = json.Unmarshal(r, &obj)
			if obj.Name == "" {
				continue
			}
			var nodes []Ref
			if err := json.Unmarshal(obj.Nodes, &nodes); err != nil {
				nodes = nil
			}
			color := string(obj.Color)
			if color == "" {
				color = DefaultAppColor
			}
			*l = append(*l, App{Name: string(obj.Name), Nodes: nodes, Color: color, HasDetail: true})
		}
	}
	return nil
}

type Device struct {
	ID          Ref          `json:"id"`
	NodeID      Ref          `json:"node_id"`
	Name        string       `json:"name,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

func (d *Device) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID          Ref          `json:"id"`
		NodeID      Ref          `json:"node_id"`
		Name        Text         `json:"name"`
		Coordinates *Coordinates `json:"coordinates"`
	}
	_ = json.Unmarshal(b, &raw)
	*d = Device{
		ID:          raw.ID,
		NodeID:      raw.NodeID,
		Name:        string(raw.Name),
		Coordinates: raw.Coordinates,
	}
	return nil
}

// Preferences are the map controls a viewer last chose.
type Preferences struct {
	SelectedApp string `json:"selected_app"`
	Animations  bool   `json:"animations"`
	Debug       bool   `json:"debug"`
}
