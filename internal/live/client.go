package live

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mr1hm/coastwatch/internal/dashboard"
	"github.com/mr1hm/coastwatch/internal/filter"
	"github.com/mr1hm/coastwatch/internal/layers"
	"github.com/mr1hm/coastwatch/internal/mapview"
	"github.com/mr1hm/coastwatch/internal/models"
)

var (
	// Time allowed to write a message to the peer.
	WriteWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	PongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than PongWait.
	PingPeriod = (PongWait * 9) / 10
	// Maximum message size allowed from peer.
	MaxMessageSize int64 = 16 * 1024
	// How often sessions re-evaluate time-window filters.
	RefreshPeriod = time.Minute
)

const sendBuffer = 256

type client struct {
	hub      *Hub
	ws       *websocket.Conn
	send     chan []byte
	commands chan Command
	quit     chan struct{}

	session  *dashboard.Session
	renderer *wsRenderer
}

func newClient(h *Hub, ws *websocket.Conn, records []models.HazardRecord) *client {
	c := &client{
		hub:      h,
		ws:       ws,
		send:     make(chan []byte, sendBuffer),
		commands: make(chan Command),
		quit:     make(chan struct{}),
		renderer: &wsRenderer{clock: h.clock},
	}
	c.session = dashboard.NewSession(records, h.overlays, c.renderer, h.clock)
	adapter := c.session.Adapter()
	adapter.OnMarkerClick(c.selected)
	adapter.OnMapClick(c.location)
	return c
}

// run owns the session until the peer goes away, the hub shuts down or the
// peer falls too far behind.
func (c *client) run(records <-chan models.HazardRecord) {
	defer func() {
		close(c.quit)
		close(c.send)
	}()

	ticker := c.hub.clock.NewTicker(RefreshPeriod)
	defer ticker.Stop()

	c.pushView()
	if !c.flush() {
		return
	}
	for {
		select {
		case cmd, ok := <-c.commands:
			if !ok {
				return
			}
			c.handle(cmd)
		case r, ok := <-records:
			if !ok {
				return
			}
			if _, err := c.session.AddRecord(r); err != nil {
				if !errors.Is(err, dashboard.ErrDuplicateRecord) {
					slog.Warn("dropping live record", "id", r.ID, "error", err)
				}
				continue
			}
			c.pushView()
		case <-ticker.Chan():
			if c.session.Refresh().Empty() {
				continue
			}
			c.pushView()
		case <-c.hub.done:
			return
		}
		if !c.flush() {
			slog.Warn("live session too slow, closing", "remote", c.ws.RemoteAddr().String())
			return
		}
	}
}

func (c *client) handle(cmd Command) {
	switch cmd.Type {
	case CmdSetFilters:
		var q filter.Query
		if cmd.Filters != nil {
			q = *cmd.Filters
		}
		st, err := q.State()
		if err != nil {
			c.pushError(cmd.Type, err)
			return
		}
		c.session.SetFilters(st)
		c.pushView()

	case CmdClearFilters:
		if cmd.Dimension == "" {
			c.session.ClearFilters()
		} else {
			d, err := filter.ParseDimension(cmd.Dimension)
			if err != nil {
				c.pushError(cmd.Type, err)
				return
			}
			c.session.ClearFilter(d)
		}
		c.pushView()

	case CmdToggleLayer:
		l, err := layers.Parse(cmd.Layer)
		if err != nil {
			c.pushError(cmd.Type, err)
			return
		}
		if _, _, err := c.session.ToggleLayer(l); err != nil {
			c.pushError(cmd.Type, err)
			return
		}
		c.pushView()

	case CmdSetBaseStyle:
		style, err := mapview.ParseBaseStyle(cmd.Style)
		if err != nil {
			c.pushError(cmd.Type, err)
			return
		}
		c.session.SetBaseStyle(style)

	case CmdMarkerClick:
		if !c.session.Adapter().Click(cmd.ID) {
			c.pushError(cmd.Type, fmt.Errorf("no marker %q on the map", cmd.ID))
		}

	case CmdMapClick:
		pt := models.Coordinates{Lat: cmd.Lat, Lng: cmd.Lng}
		if !pt.Valid() {
			c.pushError(cmd.Type, fmt.Errorf("coordinates out of range: %s", pt))
			return
		}
		c.session.Adapter().MapClick(cmd.Lat, cmd.Lng)

	default:
		c.pushError(cmd.Type, fmt.Errorf("unknown command %q", cmd.Type))
	}
}

type selectedData struct {
	ID     string               `json:"id"`
	Record *models.HazardRecord `json:"record,omitempty"`
}

func (c *client) selected(id string) {
	data := selectedData{ID: id}
	if r, ok := c.session.Record(id); ok {
		data.Record = &r
	}
	c.renderer.push(EnvelopeSelected, "", id, data)
}

func (c *client) location(lat, lng float64) {
	pt := models.Coordinates{Lat: lat, Lng: lng}
	c.renderer.push(EnvelopeLocation, "", "", locationData{Lat: lat, Lng: lng, Address: pt.String()})
}

func (c *client) pushView() {
	v := c.session.View()
	c.renderer.push(EnvelopeView, "", "", viewData{
		Count:   v.Count,
		Total:   v.Total,
		Empty:   v.Empty,
		Filters: v.Filters,
		Layers:  c.session.Layers(),
		Style:   string(c.session.Style()),
	})
}

func (c *client) pushError(cmd string, err error) {
	c.renderer.push(EnvelopeError, "", "", errorData{Command: cmd, Message: err.Error()})
}

// flush hands pending envelopes to the writer. It reports false when the
// send buffer is full.
func (c *client) flush() bool {
	for _, env := range c.renderer.drain() {
		b, err := json.Marshal(env)
		if err != nil {
			slog.Error("failed to marshal envelope", "type", env.Type, "error", err)
			continue
		}
		select {
		case c.send <- b:
		default:
			return false
		}
	}
	return true
}

func (c *client) listenRead() {
	defer close(c.commands)

	c.ws.SetReadLimit(MaxMessageSize)
	if err := c.ws.SetReadDeadline(time.Now().Add(PongWait)); err != nil {
		slog.Error("failed to set socket read deadline", "error", err)
	}
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(PongWait))
	})
	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			slog.Debug("ws read message error", "error", err)
			return
		}

		var cmd Command
		if err := json.Unmarshal(message, &cmd); err != nil {
			slog.Debug("invalid command", "data", string(message), "error", err)
			cmd = Command{Type: "INVALID"}
		}
		select {
		case c.commands <- cmd:
		case <-c.quit:
			return
		}
	}
}

func (c *client) listenWrite() {
	write := func(mt int, payload []byte) error {
		if err := c.ws.SetWriteDeadline(time.Now().Add(WriteWait)); err != nil {
			return err
		}
		return c.ws.WriteMessage(mt, payload)
	}
	ticker := time.NewTicker(PingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.ws.Close(); err != nil {
			slog.Debug("websocket already closed", "error", err)
		}
	}()
	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				if err := write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")); err != nil {
					slog.Debug("socket already closed", "error", err)
				}
				return
			}
			if err := write(websocket.TextMessage, message); err != nil {
				slog.Debug("failed to write socket message", "error", err)
				return
			}
		case <-ticker.C:
			if err := write(websocket.PingMessage, []byte{}); err != nil {
				slog.Debug("failed to ping socket", "error", err)
				return
			}
		}
	}
}
