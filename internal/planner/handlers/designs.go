package handlers

import (
	"context"
	"log"
	"math"
	"net/http"

	"floorplan/internal/planner/engine"
	"floorplan/internal/planner/geometry"
	"floorplan/internal/planner/models"
	"floorplan/internal/planner/repository"

	"github.com/gofiber/fiber/v3"
)

// DesignCatalog дает доступ к записям о сохраненных дизайнах.
type DesignCatalog interface {
	ListDesigns(ctx context.Context) ([]repository.Design, error)
	GetDesign(ctx context.Context, id string) (*repository.Design, error)
	DeleteDesign(ctx context.Context, id string) error
}

type createRequest struct {
	Name string `json:"name"`
}

// ListDesigns возвращает сохраненные дизайны.
func (h *PlannerHandler) ListDesigns(c fiber.Ctx) error {
	if h.designs == nil {
		return c.JSON([]repository.Design{})
	}
	list, err := h.designs.ListDesigns(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(list)
}

// CreateDesign заводит новый пустой дизайн.
func (h *PlannerHandler) CreateDesign(c fiber.Ctx) error {
	var req createRequest
	if err := decode(c, &req, true); err != nil {
		return badRequest(c, err)
	}

	s, err := h.sessions.Create(c.Context(), req.Name)
	if err != nil {
		return fail(c, err)
	}
	var st engine.State
	_ = s.View(func(e *engine.Editor) error {
		st = e.State()
		return nil
	})
	return c.Status(http.StatusCreated).JSON(st)
}

// OpenDesign открывает дизайн и возвращает его состояние.
func (h *PlannerHandler) OpenDesign(c fiber.Ctx) error {
	return h.GetState(c)
}

// DesignInfo возвращает запись о дизайне из хранилища.
func (h *PlannerHandler) DesignInfo(c fiber.Ctx) error {
	if h.designs == nil {
		return fail(c, engine.ErrNoStore)
	}
	d, err := h.designs.GetDesign(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(d)
}

// CloseDesign выгружает дизайн из памяти. Несохраненные изменения теряются.
// С purge=true дизайн удаляется и из хранилища.
func (h *PlannerHandler) CloseDesign(c fiber.Ctx) error {
	id := c.Params("id")
	closed := h.sessions.Close(id)

	if fiber.Query[bool](c, "purge") {
		if h.designs == nil {
			return fail(c, engine.ErrNoStore)
		}
		if err := h.designs.DeleteDesign(c.Context(), id); err != nil {
			return fail(c, err)
		}
		log.Printf("[PLANNER] Design %s deleted", id)
		return c.SendStatus(http.StatusNoContent)
	}

	if !closed {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "design not open"})
	}
	return c.SendStatus(http.StatusNoContent)
}

// SaveDesign отправляет состояние в хранилище.
func (h *PlannerHandler) SaveDesign(c fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return fail(c, err)
	}
	if err := s.View(func(e *engine.Editor) error { return e.Save(c.Context()) }); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "saved", "id": s.ID})
}

// ExportDesign отдает сериализованное состояние сцены.
func (h *PlannerHandler) ExportDesign(c fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return fail(c, err)
	}
	var data []byte
	err = s.View(func(e *engine.Editor) error {
		var err error
		data, err = e.Serialize()
		return err
	})
	if err != nil {
		return fail(c, err)
	}
	c.Set("Content-Type", "application/json")
	return c.Send(data)
}

// ImportDesign заменяет сцену переданным состоянием. История начинается заново.
func (h *PlannerHandler) ImportDesign(c fiber.Ctx) error {
	if len(c.Body()) == 0 {
		return badRequest(c, errEmptyBody)
	}
	body := append([]byte(nil), c.Body()...)

	s, err := h.session(c)
	if err != nil {
		return fail(c, err)
	}
	var st engine.State
	err = s.Do(func(e *engine.Editor) error {
		if err := e.ApplyState(c.Context(), body); err != nil {
			return err
		}
		st = e.State()
		return nil
	})
	if err != nil {
		return badRequest(c, err)
	}
	return c.JSON(st)
}

// GetState возвращает сводку редактора.
func (h *PlannerHandler) GetState(c fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return fail(c, err)
	}
	var st engine.State
	_ = s.View(func(e *engine.Editor) error {
		st = e.State()
		return nil
	})
	return c.JSON(st)
}

type roomPayload struct {
	ID          string         `json:"id"`
	Points      []models.Point `json:"points"`
	InnerPoints []models.Point `json:"innerPoints"`
	FillPattern string         `json:"fillPattern"`
	Area        float64        `json:"area"`
}

// ListRooms возвращает комнаты с площадью по внутреннему контуру.
func (h *PlannerHandler) ListRooms(c fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return fail(c, err)
	}
	var rooms []models.RoomPolygon
	_ = s.View(func(e *engine.Editor) error {
		rooms = e.Rooms()
		return nil
	})

	out := make([]roomPayload, 0, len(rooms))
	for _, r := range rooms {
		area := r.Inner
		if len(area) < 3 {
			area = r.Points
		}
		out = append(out, roomPayload{
			ID:          r.ID,
			Points:      r.Points,
			InnerPoints: r.Inner,
			FillPattern: r.FillPattern,
			Area:        math.Abs(geometry.SignedArea(area)),
		})
	}
	return c.JSON(out)
}
