package mapview

import "github.com/mr1hm/coastwatch/internal/layers"

// Call is one renderer invocation captured by Recorder.
type Call struct {
	Op    string // "add", "remove" or "style"
	Layer layers.Layer
	ID    string
	Style BaseStyle
}

// Recorder is a Renderer that only records calls. Tests use it to assert
// how many markers a state change created or removed.
type Recorder struct {
	Calls []Call
}

func (r *Recorder) AddMarker(m Marker) {
	r.Calls = append(r.Calls, Call{Op: "add", Layer: m.Layer, ID: m.ID})
}

func (r *Recorder) RemoveMarker(l layers.Layer, id string) {
	r.Calls = append(r.Calls, Call{Op: "remove", Layer: l, ID: id})
}

func (r *Recorder) SetBaseStyle(style BaseStyle) {
	r.Calls = append(r.Calls, Call{Op: "style", Style: style})
}

// Count returns how many calls of op touched layer l. An empty layer
// matches every layer.
func (r *Recorder) Count(op string, l layers.Layer) int {
	n := 0
	for _, c := range r.Calls {
		if c.Op == op && (l == "" || c.Layer == l) {
			n++
		}
	}
	return n
}

func (r *Recorder) Reset() {
	r.Calls = nil
}
