// Package layers owns the on/off state of the dashboard's map layers.
package layers

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownLayer = errors.New("unknown layer")

type Layer string

const (
	Hazards    Layer = "hazards"
	Weather    Layer = "weather"
	Evacuation Layer = "evacuation"
	Population Layer = "population"
)

// All lists the fixed layer set in render order.
var All = []Layer{Hazards, Weather, Evacuation, Population}

func Parse(s string) (Layer, error) {
	l := Layer(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range All {
		if l == known {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLayer, s)
}

// State maps every layer to its visibility flag.
type State map[Layer]bool

// DefaultState shows hazards and weather stations; evacuation routes and
// population density start hidden.
func DefaultState() State {
	return State{
		Hazards:    true,
		Weather:    true,
		Evacuation: false,
		Population: false,
	}
}

// Clone returns an independent copy of s.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Equal reports whether both states have the same flags.
func (s State) Equal(other State) bool {
	for _, l := range All {
		if s[l] != other[l] {
			return false
		}
	}
	return true
}

// Listener is notified with the single layer whose flag changed.
type Listener func(layer Layer, visible bool)

// Controller owns a State. Layers are independent: changing one never
// touches another. Controller is not safe for concurrent use; it belongs to
// one dashboard session.
type Controller struct {
	state     State
	listeners []Listener
}

func NewController() *Controller {
	return &Controller{state: DefaultState()}
}

// NewControllerWith starts from initial, filling missing layers with false.
func NewControllerWith(initial State) *Controller {
	c := &Controller{state: make(State, len(All))}
	for _, l := range All {
		c.state[l] = initial[l]
	}
	return c
}

// Subscribe registers fn for future changes.
func (c *Controller) Subscribe(fn Listener) {
	c.listeners = append(c.listeners, fn)
}

// Toggle flips exactly one layer and returns its new visibility.
func (c *Controller) Toggle(l Layer) (bool, error) {
	if _, ok := c.state[l]; !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownLayer, l)
	}
	c.state[l] = !c.state[l]
	c.notify(l)
	return c.state[l], nil
}

// Set forces a layer's visibility. Listeners fire only on an actual change.
func (c *Controller) Set(l Layer, visible bool) error {
	cur, ok := c.state[l]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownLayer, l)
	}
	if cur == visible {
		return nil
	}
	c.state[l] = visible
	c.notify(l)
	return nil
}

func (c *Controller) Visible(l Layer) bool {
	return c.state[l]
}

// Snapshot returns a copy callers may keep without observing later toggles.
func (c *Controller) Snapshot() State {
	return c.state.Clone()
}

func (c *Controller) notify(l Layer) {
	for _, fn := range c.listeners {
		fn(l, c.state[l])
	}
}
