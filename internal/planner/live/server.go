package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/coder/websocket"

	"floorplan/internal/planner/engine"
	"floorplan/internal/planner/models"
	"floorplan/internal/planner/service"
)

// IntentEnvelope описывает входящее событие клиента.
type IntentEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type wheelIntent struct {
	DeltaY float64 `json:"deltaY"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type zoomIntent struct {
	Factor float64 `json:"factor"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type panIntent struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

type modeIntent struct {
	Mode string `json:"mode"`
}

var errUnknownIntent = errors.New("unknown intent")

// Server принимает websocket-подключения на /live/{id}.
type Server struct {
	hub      *Hub
	sessions *service.Manager
}

func NewServer(hub *Hub, sessions *service.Manager) *Server {
	return &Server{hub: hub, sessions: sessions}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /live/{id}", s.stream)
	return mux
}

func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, err := s.sessions.Open(r.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrSessionNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		return
	}
	s.hub.Add(id, conn)
	defer s.hub.Remove(id, conn)
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx := r.Context()
	var st engine.State
	_ = sess.View(func(e *engine.Editor) error {
		st = e.State()
		return nil
	})
	s.send(ctx, conn, "State", st)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var env IntentEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.send(ctx, conn, "Error", map[string]string{"error": "invalid json"})
			continue
		}
		if err := sess.Do(func(e *engine.Editor) error { return Apply(ctx, e, env) }); err != nil {
			s.send(ctx, conn, "Error", map[string]string{"type": env.Type, "error": err.Error()})
		}
	}
}

func (s *Server) send(ctx context.Context, conn *websocket.Conn, typ string, payload any) {
	data, err := s.hub.envelope(typ, payload)
	if err != nil {
		log.Printf("[LIVE] encode %s: %v", typ, err)
		return
	}
	_ = conn.Write(ctx, websocket.MessageText, data)
}

// Apply переводит событие клиента в вызов редактора.
func Apply(ctx context.Context, e *engine.Editor, env IntentEnvelope) error {
	switch env.Type {
	case "PointerDown", "PointerMove", "PointerUp":
		var p engine.Pointer
		if err := decode(env, &p); err != nil {
			return err
		}
		switch env.Type {
		case "PointerDown":
			e.OnPointerDown(ctx, p)
		case "PointerMove":
			e.OnPointerMove(ctx, p)
		default:
			e.OnPointerUp(ctx, p)
		}
	case "Key":
		var k engine.Key
		if err := decode(env, &k); err != nil {
			return err
		}
		e.OnKey(ctx, k)
	case "Wheel":
		var req wheelIntent
		if err := decode(env, &req); err != nil {
			return err
		}
		e.OnWheel(req.DeltaY, engine.Pointer{X: req.X, Y: req.Y})
	case "Zoom":
		var req zoomIntent
		if err := decode(env, &req); err != nil {
			return err
		}
		e.Zoom(req.Factor, models.Point{X: req.X, Y: req.Y})
	case "Pan":
		var req panIntent
		if err := decode(env, &req); err != nil {
			return err
		}
		e.Pan(req.DX, req.DY)
	case "Mode":
		var req modeIntent
		if err := decode(env, &req); err != nil {
			return err
		}
		switch engine.ParseMode(req.Mode) {
		case engine.ModeDraw:
			e.StartDrawWall(ctx)
		case engine.ModePan:
			e.StartPan(ctx)
		default:
			e.Select(ctx)
		}
	case "StartDraw":
		e.StartDrawWall(ctx)
	case "FinishDraw":
		e.FinishDrawWall(ctx)
	case "Undo":
		_, err := e.Undo(ctx)
		return err
	case "Redo":
		_, err := e.Redo(ctx)
		return err
	default:
		return fmt.Errorf("%w: %q", errUnknownIntent, env.Type)
	}
	return nil
}

func decode(env IntentEnvelope, v any) error {
	if len(env.Payload) == 0 {
		return fmt.Errorf("%s: payload required", env.Type)
	}
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return fmt.Errorf("%s: %w", env.Type, err)
	}
	return nil
}
