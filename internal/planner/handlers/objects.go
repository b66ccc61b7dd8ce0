package handlers

import (
	"net/http"

	"floorplan/internal/planner/engine"
	"floorplan/internal/planner/models"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Objects
// ============================================================

type patternRequest struct {
	URL   string  `json:"url"`
	Scale float64 `json:"scale"`
}

// AddFurniture добавляет свободный объект.
func (h *PlannerHandler) AddFurniture(c fiber.Ctx) error {
	var spec engine.FurnitureSpec
	if err := decode(c, &spec, false); err != nil {
		return badRequest(c, err)
	}
	s, err := h.session(c)
	if err != nil {
		return fail(c, err)
	}
	var obj *models.SceneObject
	err = s.Do(func(e *engine.Editor) error {
		added, err := e.AddFurniture(spec)
		if err != nil {
			return err
		}
		obj = added.Clone()
		return nil
	})
	if err != nil {
		return fail(c, err)
	}
	return c.Status(http.StatusCreated).JSON(obj)
}

func (h *PlannerHandler) TransformObject(c fiber.Ctx) error {
	var t engine.Transform
	if err := decode(c, &t, false); err != nil {
		return badRequest(c, err)
	}
	return h.mutate(c, func(e *engine.Editor) error {
		return e.TransformObject(c.Params("oid"), t)
	})
}

// DeleteObject удаляет объект; стены обрезают незаконченную цепочку.
func (h *PlannerHandler) DeleteObject(c fiber.Ctx) error {
	return h.mutate(c, func(e *engine.Editor) error {
		return e.DeleteObject(c.Params("oid"))
	})
}

func (h *PlannerHandler) BringForward(c fiber.Ctx) error {
	return h.mutate(c, func(e *engine.Editor) error {
		id := c.Params("oid")
		if _, ok := e.Object(id); !ok {
			return engine.ErrNotFound
		}
		e.BringForward(id)
		return nil
	})
}

func (h *PlannerHandler) SendBackward(c fiber.Ctx) error {
	return h.mutate(c, func(e *engine.Editor) error {
		id := c.Params("oid")
		if _, ok := e.Object(id); !ok {
			return engine.ErrNotFound
		}
		e.SendBackward(id)
		return nil
	})
}

// SetRoomPattern меняет текстуру комнаты. Если картинка не загрузилась,
// комната остается с плоской заливкой и ответ содержит warning.
func (h *PlannerHandler) SetRoomPattern(c fiber.Ctx) error {
	var req patternRequest
	if err := decode(c, &req, false); err != nil {
		return badRequest(c, err)
	}
	if req.URL == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "url required"})
	}
	s, err := h.session(c)
	if err != nil {
		return fail(c, err)
	}

	var (
		patternErr error
		st         engine.State
	)
	err = s.Do(func(e *engine.Editor) error {
		id := c.Params("oid")
		obj, ok := e.Object(id)
		if !ok {
			return engine.ErrNotFound
		}
		if obj.Name != models.NameRoom {
			return engine.ErrNotRoom
		}
		patternErr = e.SetRoomPattern(c.Context(), id, req.URL, req.Scale)
		st = e.State()
		return nil
	})
	if err != nil {
		return fail(c, err)
	}
	resp := fiber.Map{"state": st}
	if patternErr != nil {
		resp["warning"] = patternErr.Error()
	}
	return c.JSON(resp)
}
