// Package render рисует превью дизайна: SVG и PNG.
package render

import (
	"errors"
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"

	"floorplan/internal/planner/models"
)

var ErrEmptyScene = errors.New("scene has nothing to render")

// ============================================================
// SVG renderer
// ============================================================

type SVGRenderer struct {
	Padding float64
}

func NewSVGRenderer() *SVGRenderer {
	return &SVGRenderer{Padding: 20}
}

// Render собирает SVG из объектов сцены в порядке отрисовки.
func (r *SVGRenderer) Render(objects []*models.SceneObject) (string, error) {
	minX, minY, maxX, maxY, ok := sceneBounds(objects)
	if !ok {
		return "", ErrEmptyScene
	}
	minX -= r.Padding
	minY -= r.Padding
	width := maxX - minX + r.Padding
	height := maxY - minY + r.Padding

	var elements []string
	for _, o := range objects {
		if o.Transient || o.Name == models.NameGrid {
			continue
		}
		switch {
		case o.Name == models.NameRoom:
			elements = append(elements, r.renderRoom(o))
		case o.IsWall():
			elements = append(elements, r.renderWall(o))
		default:
			if elem := r.renderOther(o); elem != "" {
				elements = append(elements, elem)
			}
		}
	}

	var builder strings.Builder
	builder.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	builder.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="%s %s %s %s">`,
		formatFloat(width), formatFloat(height), formatFloat(minX), formatFloat(minY), formatFloat(width), formatFloat(height)))
	builder.WriteString("\n")

	for _, elem := range elements {
		builder.WriteString("  ")
		builder.WriteString(elem)
		builder.WriteString("\n")
	}

	builder.WriteString(`</svg>`)
	return builder.String(), nil
}

// ============================================================
// Element renderers
// ============================================================

func (r *SVGRenderer) renderRoom(o *models.SceneObject) string {
	fill := o.Fill
	if o.Pattern != nil && o.Pattern.Flat {
		fill = o.Pattern.FlatColor
	}
	if fill == "" {
		fill = "none"
	}
	return fmt.Sprintf(`<path id="%s" d="%s" fill="%s" stroke="#888" />`,
		attr(o.ID), polygonPath(o.Points), attr(fill))
}

func (r *SVGRenderer) renderWall(o *models.SceneObject) string {
	d := o.Path
	if o.Wall != nil {
		d = polygonPath(o.Wall.Outline())
	}
	fill := o.Fill
	if fill == "" {
		fill = "#000"
	}
	return fmt.Sprintf(`<path id="%s" d="%s" fill="%s" stroke="%s" />`,
		attr(o.ID), attr(d), attr(fill), attr(fill))
}

func (r *SVGRenderer) renderOther(o *models.SceneObject) string {
	points := objectOutline(o)
	if len(points) < 3 {
		return ""
	}
	stroke := o.Stroke
	if stroke == "" {
		stroke = "#2ca02c"
	}
	fill := o.Fill
	if fill == "" {
		fill = "none"
	}
	return fmt.Sprintf(`<path id="%s" d="%s" fill="%s" stroke="%s" />`,
		attr(o.ID), polygonPath(points), attr(fill), attr(stroke))
}

// ============================================================
// Geometry helpers
// ============================================================

// objectOutline возвращает контур объекта в координатах канвы.
func objectOutline(o *models.SceneObject) []models.Point {
	switch {
	case o.IsWall() && o.Wall != nil:
		return o.Wall.Outline()
	case len(o.Points) >= 3:
		return o.Points
	case o.Width > 0 && o.Height > 0:
		return rectanglePoints(o.Left, o.Top, o.Width*scale(o.ScaleX), o.Height*scale(o.ScaleY), o.Angle)
	}
	return o.Points
}

// rectanglePoints строит прямоугольник с поворотом вокруг левого верхнего угла.
func rectanglePoints(left, top, width, height, rotationDeg float64) []models.Point {
	points := []models.Point{
		{X: left, Y: top},
		{X: left + width, Y: top},
		{X: left + width, Y: top + height},
		{X: left, Y: top + height},
	}

	if rotationDeg == 0 {
		return points
	}

	rad := rotationDeg * math.Pi / 180
	sin := math.Sin(rad)
	cos := math.Cos(rad)

	for i, p := range points {
		dx := p.X - left
		dy := p.Y - top
		points[i] = models.Point{
			X: left + dx*cos - dy*sin,
			Y: top + dx*sin + dy*cos,
		}
	}

	return points
}

func sceneBounds(objects []*models.SceneObject) (minX, minY, maxX, maxY float64, ok bool) {
	minX, minY = math.MaxFloat64, math.MaxFloat64
	maxX, maxY = -math.MaxFloat64, -math.MaxFloat64

	for _, o := range objects {
		if o.Transient || o.Name == models.NameGrid {
			continue
		}
		for _, p := range objectOutline(o) {
			minX = math.Min(minX, p.X)
			minY = math.Min(minY, p.Y)
			maxX = math.Max(maxX, p.X)
			maxY = math.Max(maxY, p.Y)
			ok = true
		}
	}
	return minX, minY, maxX, maxY, ok
}

func scale(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

// ============================================================
// Formatting helpers
// ============================================================

func polygonPath(points []models.Point) string {
	if len(points) == 0 {
		return ""
	}
	var path strings.Builder
	path.WriteString("M ")
	path.WriteString(formatPoint(points[0]))
	for _, p := range points[1:] {
		path.WriteString(" L ")
		path.WriteString(formatPoint(p))
	}
	path.WriteString(" Z")
	return path.String()
}

func attr(s string) string {
	return html.EscapeString(s)
}

func formatFloat(val float64) string {
	return strconv.FormatFloat(val, 'f', -1, 64)
}

func formatPoint(p models.Point) string {
	return formatFloat(p.X) + " " + formatFloat(p.Y)
}
