package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"floorplan/internal/planner/engine"
	"floorplan/internal/planner/render"
	"floorplan/internal/planner/service"
	"floorplan/internal/planner/walls"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Planner Handler
// ============================================================

type PlannerHandler struct {
	sessions *service.Manager
	designs  DesignCatalog
}

func NewPlannerHandler(sessions *service.Manager, designs DesignCatalog) *PlannerHandler {
	return &PlannerHandler{
		sessions: sessions,
		designs:  designs,
	}
}

// Register вешает маршруты планировщика на роутер.
func (h *PlannerHandler) Register(r fiber.Router) {
	r.Get("/designs", h.ListDesigns)
	r.Post("/designs", h.CreateDesign)
	r.Get("/designs/:id", h.OpenDesign)
	r.Delete("/designs/:id", h.CloseDesign)
	r.Get("/designs/:id/info", h.DesignInfo)
	r.Post("/designs/:id/save", h.SaveDesign)
	r.Get("/designs/:id/export", h.ExportDesign)
	r.Put("/designs/:id/import", h.ImportDesign)

	r.Get("/designs/:id/state", h.GetState)
	r.Get("/designs/:id/rooms", h.ListRooms)
	r.Get("/designs/:id/preview.svg", h.PreviewSVG)
	r.Get("/designs/:id/preview.png", h.PreviewPNG)

	r.Post("/designs/:id/draw/start", h.StartDraw)
	r.Post("/designs/:id/draw/finish", h.FinishDraw)
	r.Post("/designs/:id/mode", h.SetMode)
	r.Post("/designs/:id/pointer/down", h.PointerDown)
	r.Post("/designs/:id/pointer/move", h.PointerMove)
	r.Post("/designs/:id/pointer/up", h.PointerUp)
	r.Post("/designs/:id/key", h.Key)
	r.Post("/designs/:id/wheel", h.Wheel)
	r.Post("/designs/:id/undo", h.Undo)
	r.Post("/designs/:id/redo", h.Redo)
	r.Post("/designs/:id/zoom", h.Zoom)
	r.Post("/designs/:id/pan", h.Pan)
	r.Post("/designs/:id/resize", h.Resize)

	r.Post("/designs/:id/objects", h.AddFurniture)
	r.Patch("/designs/:id/objects/:oid", h.TransformObject)
	r.Delete("/designs/:id/objects/:oid", h.DeleteObject)
	r.Post("/designs/:id/objects/:oid/forward", h.BringForward)
	r.Post("/designs/:id/objects/:oid/backward", h.SendBackward)
	r.Put("/designs/:id/rooms/:oid/pattern", h.SetRoomPattern)
}

// ============================================================
// helpers
// ============================================================

var errEmptyBody = errors.New("empty body")

// session находит открытую сессию или поднимает дизайн из хранилища.
func (h *PlannerHandler) session(c fiber.Ctx) (*service.Session, error) {
	return h.sessions.Open(c.Context(), c.Params("id"))
}

// decode разбирает тело запроса. Пустое тело допустимо, если allowEmpty.
func decode(c fiber.Ctx, v any, allowEmpty bool) error {
	if len(c.Body()) == 0 {
		if allowEmpty {
			return nil
		}
		return errEmptyBody
	}
	if err := json.Unmarshal(c.Body(), v); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

func badRequest(c fiber.Ctx, err error) error {
	return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
}

// fail переводит ошибку движка в HTTP-ответ.
func fail(c fiber.Ctx, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, engine.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrFixedElement), errors.Is(err, walls.ErrBusy):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrNotRoom), errors.Is(err, engine.ErrInvalidObject),
		errors.Is(err, walls.ErrNotWall), errors.Is(err, render.ErrEmptyScene):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrNoStore):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		log.Printf("[PLANNER] %s %s error: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// mutate выполняет изменение под блокировкой сессии и отдает новое состояние.
func (h *PlannerHandler) mutate(c fiber.Ctx, fn func(e *engine.Editor) error) error {
	s, err := h.session(c)
	if err != nil {
		return fail(c, err)
	}
	var st engine.State
	err = s.Do(func(e *engine.Editor) error {
		if err := fn(e); err != nil {
			return err
		}
		st = e.State()
		return nil
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(st)
}
