package live

import (
	"encoding/json"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/coastwatch/internal/filter"
	"github.com/mr1hm/coastwatch/internal/layers"
	"github.com/mr1hm/coastwatch/internal/mapview"
)

// Commands sent by the browser.
const (
	CmdSetFilters   = "SET_FILTERS"
	CmdClearFilters = "CLEAR_FILTERS"
	CmdToggleLayer  = "TOGGLE_LAYER"
	CmdSetBaseStyle = "SET_BASE_STYLE"
	CmdMarkerClick  = "MARKER_CLICK"
	CmdMapClick     = "MAP_CLICK"
)

// Envelope types sent to the browser.
const (
	EnvelopeMarkerAdd    = "MARKER_ADD"
	EnvelopeMarkerRemove = "MARKER_REMOVE"
	EnvelopeBaseStyle    = "BASE_STYLE"
	EnvelopeView         = "VIEW"
	EnvelopeSelected     = "SELECTED"
	EnvelopeLocation     = "LOCATION"
	EnvelopeError        = "ERROR"
)

type Command struct {
	Type      string        `json:"type"`
	Filters   *filter.Query `json:"filters,omitempty"`
	Dimension string        `json:"dimension,omitempty"` // CLEAR_FILTERS: empty clears all
	Layer     string        `json:"layer,omitempty"`
	Style     string        `json:"style,omitempty"`
	ID        string        `json:"id,omitempty"`
	Lat       float64       `json:"lat,omitempty"`
	Lng       float64       `json:"lng,omitempty"`
}

type Envelope struct {
	Type      string          `json:"type"`
	Layer     string          `json:"layer,omitempty"`
	ID        string          `json:"id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

type viewData struct {
	Count   int          `json:"count"`
	Total   int          `json:"total"`
	Empty   bool         `json:"empty"`
	Filters filter.Query `json:"filters"`
	Layers  layers.State `json:"layers"`
	Style   string       `json:"style"`
}

type styleData struct {
	Style   string `json:"style"`
	TileURL string `json:"tile_url"`
}

type locationData struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

type errorData struct {
	Command string `json:"command,omitempty"`
	Message string `json:"message"`
}

// wsRenderer turns map adapter calls into envelopes. They are held until
// the connection loop flushes them.
type wsRenderer struct {
	clock   clockwork.Clock
	pending []Envelope
}

func (r *wsRenderer) push(typ, layer, id string, data any) {
	env := Envelope{Type: typ, Layer: layer, ID: id, Timestamp: r.clock.Now()}
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			env = Envelope{Type: EnvelopeError, Timestamp: env.Timestamp}
			b, _ = json.Marshal(errorData{Message: err.Error()})
		}
		env.Data = b
	}
	r.pending = append(r.pending, env)
}

func (r *wsRenderer) AddMarker(m mapview.Marker) {
	r.push(EnvelopeMarkerAdd, string(m.Layer), m.ID, m.Feature)
}

func (r *wsRenderer) RemoveMarker(l layers.Layer, id string) {
	r.push(EnvelopeMarkerRemove, string(l), id, nil)
}

func (r *wsRenderer) SetBaseStyle(style mapview.BaseStyle) {
	r.push(EnvelopeBaseStyle, "", "", styleData{Style: string(style), TileURL: style.TileURL()})
}

func (r *wsRenderer) drain() []Envelope {
	out := r.pending
	r.pending = nil
	return out
}
