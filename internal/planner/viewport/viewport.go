// Package viewport реализует бесконечную сетку с панорамированием и масштабом.
package viewport

import (
	"math"

	"floorplan/internal/planner/models"
)

// ============================================================
// Viewport
// ============================================================

// Config задает параметры сетки и масштаба.
type Config struct {
	SubGridSize float64
	MinZoom     float64
	MaxZoom     float64
	Width       float64
	Height      float64
}

// Rect задает прямоугольник в координатах канвы.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Viewport хранит преобразование экран <-> канва: screen = canvas*zoom + offset.
type Viewport struct {
	cfg     Config
	zoom    float64
	offset  models.Point
	width   float64
	height  float64
	gridExt Rect
}

// New создает вьюпорт с единичным масштабом.
func New(cfg Config) *Viewport {
	if cfg.SubGridSize <= 0 {
		cfg.SubGridSize = 20
	}
	if cfg.MinZoom <= 0 {
		cfg.MinZoom = 0.2
	}
	if cfg.MaxZoom < cfg.MinZoom {
		cfg.MaxZoom = cfg.MinZoom
	}
	v := &Viewport{cfg: cfg, zoom: 1}
	v.Resize(cfg.Width, cfg.Height)
	return v
}

// SnapToGrid округляет точку до ближайшего узла вспомогательной сетки.
// Идемпотентна: привязанная точка возвращается без изменений.
func (v *Viewport) SnapToGrid(p models.Point) models.Point {
	size := v.cfg.SubGridSize
	return models.Point{
		X: math.Round(p.X/size) * size,
		Y: math.Round(p.Y/size) * size,
	}
}

// Zoom умножает масштаб на factor с ограничением [MinZoom, MaxZoom].
// Точка center (экранная) остается на месте.
func (v *Viewport) Zoom(factor float64, center models.Point) float64 {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return v.zoom
	}
	next := clamp(v.zoom*factor, v.cfg.MinZoom, v.cfg.MaxZoom)
	anchor := v.ToCanvas(center)
	v.zoom = next
	v.offset = models.Point{
		X: center.X - anchor.X*next,
		Y: center.Y - anchor.Y*next,
	}
	return v.zoom
}

// Pan сдвигает вьюпорт на dx, dy экранных пикселей. Без ограничений.
func (v *Viewport) Pan(dx, dy float64) {
	v.offset.X += dx
	v.offset.Y += dy
}

// Resize пересчитывает размеры сетки и центрирует ее относительно вьюпорта.
func (v *Viewport) Resize(width, height float64) {
	if width <= 0 {
		width = 1280
	}
	if height <= 0 {
		height = 800
	}
	v.width = width
	v.height = height

	w := width * v.cfg.MaxZoom
	h := height * v.cfg.MaxZoom
	center := v.ToCanvas(models.Point{X: width / 2, Y: height / 2})
	v.gridExt = Rect{
		X:      center.X - w/2,
		Y:      center.Y - h/2,
		Width:  w,
		Height: h,
	}
}

// ToCanvas переводит экранную точку в координаты канвы.
func (v *Viewport) ToCanvas(p models.Point) models.Point {
	return models.Point{
		X: (p.X - v.offset.X) / v.zoom,
		Y: (p.Y - v.offset.Y) / v.zoom,
	}
}

// ToScreen переводит точку канвы в экранные координаты.
func (v *Viewport) ToScreen(p models.Point) models.Point {
	return models.Point{
		X: p.X*v.zoom + v.offset.X,
		Y: p.Y*v.zoom + v.offset.Y,
	}
}

func (v *Viewport) ZoomLevel() float64   { return v.zoom }
func (v *Viewport) Offset() models.Point { return v.offset }
func (v *Viewport) GridExtent() Rect     { return v.gridExt }
func (v *Viewport) GridSize() float64    { return v.cfg.SubGridSize }
func (v *Viewport) Size() (w, h float64) { return v.width, v.height }

// State хранит сериализуемое состояние вьюпорта.
type State struct {
	Zoom   float64      `json:"zoom"`
	Offset models.Point `json:"offset"`
	Width  float64      `json:"width"`
	Height float64      `json:"height"`
	Grid   Rect         `json:"grid"`
}

func (v *Viewport) State() State {
	return State{Zoom: v.zoom, Offset: v.offset, Width: v.width, Height: v.height, Grid: v.gridExt}
}

func clamp(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
