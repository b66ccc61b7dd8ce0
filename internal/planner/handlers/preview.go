package handlers

import (
	"bytes"

	"floorplan/internal/planner/engine"
	"floorplan/internal/planner/models"
	"floorplan/internal/planner/render"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Preview
// ============================================================

// snapshotObjects копирует объекты сцены под блокировкой сессии.
func (h *PlannerHandler) snapshotObjects(c fiber.Ctx) ([]*models.SceneObject, error) {
	s, err := h.session(c)
	if err != nil {
		return nil, err
	}
	var objs []*models.SceneObject
	_ = s.View(func(e *engine.Editor) error {
		for _, o := range e.Objects() {
			objs = append(objs, o.Clone())
		}
		return nil
	})
	return objs, nil
}

// PreviewSVG рендерит план в SVG.
func (h *PlannerHandler) PreviewSVG(c fiber.Ctx) error {
	objs, err := h.snapshotObjects(c)
	if err != nil {
		return fail(c, err)
	}
	svg, err := render.NewSVGRenderer().Render(objs)
	if err != nil {
		return fail(c, err)
	}
	c.Set("Content-Type", "image/svg+xml")
	return c.SendString(svg)
}

// PreviewPNG рендерит план в PNG. Размер задается query-параметрами w и h.
func (h *PlannerHandler) PreviewPNG(c fiber.Ctx) error {
	objs, err := h.snapshotObjects(c)
	if err != nil {
		return fail(c, err)
	}
	opts := render.DefaultRasterOptions()
	if w := fiber.Query[int](c, "w"); w > 0 && w <= 4096 {
		opts.Width = w
	}
	if hgt := fiber.Query[int](c, "h"); hgt > 0 && hgt <= 4096 {
		opts.Height = hgt
	}

	var buf bytes.Buffer
	if err := render.PNG(&buf, objs, opts); err != nil {
		return fail(c, err)
	}
	c.Set("Content-Type", "image/png")
	return c.Send(buf.Bytes())
}
