// Package transport speaks the simulator's wire protocol: Socket.IO-style
// "42[event,payload]" text frames over a websocket connection. Unlike a
// typical broadcast publisher, each tick is a synchronous request/response:
// a telemetry frame comes in, a control frame with the new path goes out,
// on the same goroutine, before the next frame is read.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"

	"highwayplanner/internal/obs"
	"highwayplanner/internal/planner"
	"highwayplanner/internal/vehicle"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 1 * time.Second
	// maxMessageSize sizes the upgrader's read and write buffers. No read
	// limit is set on the connection, so it does not cap an incoming frame.
	maxMessageSize = 8192
	// pingResolution is how often a liveness ping is sent.
	pingResolution = 200 * time.Millisecond
	// pongWait is how long a missing pong is tolerated before the
	// connection is considered dead.
	pongWait = pingResolution * 4
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  maxMessageSize,
	WriteBufferSize: maxMessageSize,
}

const (
	eventTelemetry = "telemetry"
	eventManual    = "manual"
	eventControl   = "control"
)

// ErrPongDeadlineExceeded is returned from Serve when the peer stops
// answering pings.
var ErrPongDeadlineExceeded = errors.New("transport: pong deadline exceeded")

// Session is one simulator connection: one websocket, one planner.
type Session struct {
	ws      *websock
	plan    *planner.Planner
	log     *obs.Logger
	rootCtx context.Context
}

// Upgrade promotes an HTTP request to a websocket-backed Session bound to
// the given planner. The caller should call Serve on the result.
func Upgrade(w http.ResponseWriter, r *http.Request, p *planner.Planner, log *obs.Logger) (*Session, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, err
	}
	if log == nil {
		log = obs.Discard()
	}
	return &Session{
		ws:      newWebsock(conn),
		plan:    p,
		log:     log,
		rootCtx: r.Context(),
	}, nil
}

// Serve runs the connection's read pump and liveness ping concurrently,
// returning when either fails or the context is cancelled.
func (s *Session) Serve() error {
	group, ctx := errgroup.WithContext(s.rootCtx)

	group.Go(func() error {
		return s.readPump(ctx)
	})
	group.Go(func() error {
		return s.pingPong(ctx)
	})
	group.Go(func() error {
		// Closing the connection once the group's context is cancelled is
		// what unblocks readPump's pending ReadMessage.
		<-ctx.Done()
		s.ws.Close()
		return nil
	})

	err := group.Wait()
	s.ws.Close()
	return err
}

// readPump blocks reading frames and, for each telemetry frame, runs one
// planning tick and writes the control response before reading the next
// frame. This is what makes the connection synchronous per tick rather
// than fire-and-forget.
func (s *Session) readPump(ctx context.Context) error {
	for {
		var raw []byte
		err := s.ws.Read(ctx, func(c *websocket.Conn) (readErr error) {
			_, raw, readErr = c.ReadMessage()
			return
		})
		if err != nil {
			return err
		}
		if raw == nil {
			continue
		}

		if !hasEventFramePrefix(raw) {
			// Not a "42"-prefixed event frame at all (Socket.IO pings,
			// namespace handshakes, ...): transport-level noise, silently
			// ignored per SPEC_FULL.md §7.
			s.log.Debug("ignoring non-event frame")
			continue
		}

		event, payload, ok := decodeFrame(raw)
		if !ok {
			// "42" prefix present but the payload has no recognizable
			// [event, data] delimiters: surrender control to the human
			// driver rather than silently drop the tick.
			s.log.Debug("malformed event payload, surrendering to manual")
			if err := s.writeFrame(ctx, eventManual, struct{}{}); err != nil {
				return err
			}
			continue
		}

		switch event {
		case eventTelemetry:
			if err := s.handleTelemetry(ctx, payload); err != nil {
				s.log.WithError(err).Warn("telemetry frame rejected")
			}
		default:
			// Unknown event name: ignored per SPEC_FULL.md §7.
			s.log.WithField("event", event).Debug("ignoring unknown event")
		}
	}
}

// hasEventFramePrefix reports whether raw begins with the Socket.IO "42"
// event-packet marker (message type 4, packet type 2).
func hasEventFramePrefix(raw []byte) bool {
	return len(raw) >= 2 && raw[0] == '4' && raw[1] == '2'
}

func (s *Session) handleTelemetry(ctx context.Context, payload json.RawMessage) error {
	var wire telemetryWire
	if err := json.Unmarshal(payload, &wire); err != nil {
		return fmt.Errorf("decode telemetry: %w", err)
	}

	resp := s.plan.Plan(wire.toTelemetry())

	return s.writeFrame(ctx, eventControl, controlWire{
		NextXVals: resp.NextX,
		NextYVals: resp.NextY,
	})
}

func (s *Session) writeFrame(ctx context.Context, event string, data interface{}) error {
	body, err := json.Marshal([]interface{}{event, data})
	if err != nil {
		return fmt.Errorf("encode %s frame: %w", event, err)
	}
	frame := append([]byte("42"), body...)

	return s.ws.Write(ctx, func(c *websocket.Conn) (writeErr error) {
		if writeErr = c.SetWriteDeadline(time.Now().Add(writeWait)); writeErr != nil {
			return fmt.Errorf("set write deadline: %w", writeErr)
		}
		return c.WriteMessage(websocket.TextMessage, frame)
	})
}

// pingPong mirrors the teacher's liveness loop: a ticker drives outbound
// pings, and readPump's ReadMessage call is what triggers the pong handler
// below to fire.
func (s *Session) pingPong(ctx context.Context) error {
	pong := make(chan struct{})
	defer close(pong)
	s.ws.Conn().SetPongHandler(func(string) error {
		select {
		case pong <- struct{}{}:
		case <-ctx.Done():
		}
		return nil
	})

	ticker := channerics.NewTicker(ctx.Done(), pingResolution)
	lastPong := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker:
			if time.Since(lastPong) > pongWait {
				return ErrPongDeadlineExceeded
			}
			if err := s.ws.Write(ctx, func(c *websocket.Conn) error {
				return c.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			}); err != nil {
				return err
			}
		case <-pong:
			lastPong = time.Now()
		}
	}
}

// decodeFrame strips a Socket.IO packet-type prefix ("42", "40", ...) from
// a text frame and decodes the remaining JSON array into its event name and
// raw payload. Frames that aren't a two-element [event, data] array (the
// simulator's "ping"-equivalent empty frames, namespace handshakes) decode
// with ok=false.
func decodeFrame(raw []byte) (event string, payload json.RawMessage, ok bool) {
	body := raw
	for len(body) > 0 && body[0] < '[' {
		// skip the leading ASCII-digit packet-type code (e.g. "42") up to
		// the first '[' that starts the JSON array payload.
		if body[0] != '0' && (body[0] < '1' || body[0] > '9') {
			return "", nil, false
		}
		body = body[1:]
	}
	if len(body) == 0 {
		return "", nil, false
	}

	var fields []json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return "", nil, false
	}
	if len(fields) != 2 {
		return "", nil, false
	}

	if err := json.Unmarshal(fields[0], &event); err != nil {
		return "", nil, false
	}
	return event, fields[1], true
}

// telemetryWire is the JSON shape of a "telemetry" event payload, field
// names matching the simulator's wire protocol exactly.
type telemetryWire struct {
	X            float64     `json:"x"`
	Y            float64     `json:"y"`
	S            float64     `json:"s"`
	D            float64     `json:"d"`
	Yaw          float64     `json:"yaw"`
	Speed        float64     `json:"speed"`
	PrevPathX    []float64   `json:"previous_path_x"`
	PrevPathY    []float64   `json:"previous_path_y"`
	EndPathS     float64     `json:"end_path_s"`
	EndPathD     float64     `json:"end_path_d"`
	SensorFusion [][]float64 `json:"sensor_fusion"`
}

func (w telemetryWire) toTelemetry() planner.Telemetry {
	others := make([]vehicle.OtherVehicle, 0, len(w.SensorFusion))
	for _, row := range w.SensorFusion {
		if len(row) < 7 {
			continue
		}
		others = append(others, vehicle.OtherVehicle{
			ID: int(row[0]),
			X:  row[1],
			Y:  row[2],
			Vx: row[3],
			Vy: row[4],
			S:  row[5],
			D:  row[6],
		})
	}

	return planner.Telemetry{
		Ego: vehicle.EgoState{
			X:     w.X,
			Y:     w.Y,
			Yaw:   w.Yaw,
			Speed: w.Speed,
			S:     w.S,
			D:     w.D,
		},
		Previous: vehicle.PreviousPath{
			X:    w.PrevPathX,
			Y:    w.PrevPathY,
			EndS: w.EndPathS,
			EndD: w.EndPathD,
		},
		EndPathS:      w.EndPathS,
		EndPathD:      w.EndPathD,
		OtherVehicles: others,
	}
}

// controlWire is the JSON shape of the outbound "control" event: the path
// the simulator should drive next, field names matching the wire protocol.
type controlWire struct {
	NextXVals []float64 `json:"next_x"`
	NextYVals []float64 `json:"next_y"`
}

// websock serializes concurrent reads and writes to the underlying
// connection, matching the one-reader/one-writer-at-a-time requirement of
// gorilla/websocket.
type websock struct {
	readSem  chan struct{}
	writeSem chan struct{}
	conn     *websocket.Conn
}

func newWebsock(conn *websocket.Conn) *websock {
	return &websock{
		readSem:  make(chan struct{}, 1),
		writeSem: make(chan struct{}, 1),
		conn:     conn,
	}
}

func (s *websock) Conn() *websocket.Conn {
	return s.conn
}

func (s *websock) Close() {
	select {
	case s.writeSem <- struct{}{}:
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		<-s.writeSem
	default:
	}
	_ = s.conn.Close()
}

func (s *websock) Read(ctx context.Context, fn func(*websocket.Conn) error) error {
	select {
	case <-ctx.Done():
		return nil
	case s.readSem <- struct{}{}:
		defer func() { <-s.readSem }()
		return fn(s.conn)
	}
}

func (s *websock) Write(ctx context.Context, fn func(*websocket.Conn) error) error {
	select {
	case <-ctx.Done():
		return nil
	case s.writeSem <- struct{}{}:
		defer func() { <-s.writeSem }()
		return fn(s.conn)
	}
}
