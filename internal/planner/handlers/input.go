package handlers

import (
	"context"

	"floorplan/internal/planner/engine"
	"floorplan/internal/planner/models"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Tool surface
// ============================================================

type modeRequest struct {
	Mode string `json:"mode"`
}

type wheelRequest struct {
	DeltaY float64 `json:"deltaY"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type zoomRequest struct {
	Factor float64 `json:"factor"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type panRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

type resizeRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (h *PlannerHandler) StartDraw(c fiber.Ctx) error {
	return h.mutate(c, func(e *engine.Editor) error {
		e.StartDrawWall(c.Context())
		return nil
	})
}

// FinishDraw завершает жест; в ответе результат жеста и состояние.
func (h *PlannerHandler) FinishDraw(c fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return fail(c, err)
	}
	resp := fiber.Map{}
	_ = s.Do(func(e *engine.Editor) error {
		res := e.FinishDrawWall(c.Context())
		resp["closed"] = res.Closed
		if res.Room != nil {
			resp["roomId"] = res.Room.ID
		}
		if res.UnfinishedID != "" {
			resp["unfinishedWallId"] = res.UnfinishedID
		}
		resp["state"] = e.State()
		return nil
	})
	return c.JSON(resp)
}

// SetMode переключает инструмент: select, draw или pan.
func (h *PlannerHandler) SetMode(c fiber.Ctx) error {
	var req modeRequest
	if err := decode(c, &req, false); err != nil {
		return badRequest(c, err)
	}
	return h.mutate(c, func(e *engine.Editor) error {
		switch engine.ParseMode(req.Mode) {
		case engine.ModeDraw:
			e.StartDrawWall(c.Context())
		case engine.ModePan:
			e.StartPan(c.Context())
		default:
			e.Select(c.Context())
		}
		return nil
	})
}

func (h *PlannerHandler) PointerDown(c fiber.Ctx) error {
	return h.pointer(c, (*engine.Editor).OnPointerDown)
}

func (h *PlannerHandler) PointerMove(c fiber.Ctx) error {
	return h.pointer(c, (*engine.Editor).OnPointerMove)
}

func (h *PlannerHandler) PointerUp(c fiber.Ctx) error {
	return h.pointer(c, (*engine.Editor).OnPointerUp)
}

func (h *PlannerHandler) pointer(c fiber.Ctx, fn func(*engine.Editor, context.Context, engine.Pointer)) error {
	var p engine.Pointer
	if err := decode(c, &p, false); err != nil {
		return badRequest(c, err)
	}
	return h.mutate(c, func(e *engine.Editor) error {
		fn(e, c.Context(), p)
		return nil
	})
}

// Key обрабатывает горячие клавиши; handled=false для неизвестных.
func (h *PlannerHandler) Key(c fiber.Ctx) error {
	var k engine.Key
	if err := decode(c, &k, false); err != nil {
		return badRequest(c, err)
	}
	s, err := h.session(c)
	if err != nil {
		return fail(c, err)
	}
	var (
		handled bool
		st      engine.State
	)
	_ = s.Do(func(e *engine.Editor) error {
		handled = e.OnKey(c.Context(), k)
		st = e.State()
		return nil
	})
	return c.JSON(fiber.Map{"handled": handled, "state": st})
}

func (h *PlannerHandler) Wheel(c fiber.Ctx) error {
	var req wheelRequest
	if err := decode(c, &req, false); err != nil {
		return badRequest(c, err)
	}
	return h.mutate(c, func(e *engine.Editor) error {
		e.OnWheel(req.DeltaY, engine.Pointer{X: req.X, Y: req.Y})
		return nil
	})
}

func (h *PlannerHandler) Undo(c fiber.Ctx) error {
	return h.mutate(c, func(e *engine.Editor) error {
		_, err := e.Undo(c.Context())
		return err
	})
}

func (h *PlannerHandler) Redo(c fiber.Ctx) error {
	return h.mutate(c, func(e *engine.Editor) error {
		_, err := e.Redo(c.Context())
		return err
	})
}

func (h *PlannerHandler) Zoom(c fiber.Ctx) error {
	var req zoomRequest
	if err := decode(c, &req, false); err != nil {
		return badRequest(c, err)
	}
	return h.mutate(c, func(e *engine.Editor) error {
		e.Zoom(req.Factor, models.Point{X: req.X, Y: req.Y})
		return nil
	})
}

func (h *PlannerHandler) Pan(c fiber.Ctx) error {
	var req panRequest
	if err := decode(c, &req, false); err != nil {
		return badRequest(c, err)
	}
	return h.mutate(c, func(e *engine.Editor) error {
		e.Pan(req.DX, req.DY)
		return nil
	})
}

// Resize применяется с задержкой; ответ 202 без нового состояния.
func (h *PlannerHandler) Resize(c fiber.Ctx) error {
	var req resizeRequest
	if err := decode(c, &req, false); err != nil {
		return badRequest(c, err)
	}
	s, err := h.session(c)
	if err != nil {
		return fail(c, err)
	}
	s.Resize(req.Width, req.Height)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "scheduled"})
}
