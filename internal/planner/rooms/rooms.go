// Package rooms определяет замыкание контура стен и строит по нему комнату.
package rooms

import (
	"errors"
	"fmt"
	"math"

	"floorplan/internal/planner/geometry"
	"floorplan/internal/planner/models"
)

var ErrDegenerateRoom = errors.New("degenerate room polygon")

// IsClosed: путь из трех и более точек, первая и последняя ближе threshold.
func IsClosed(path []models.Point, threshold float64) bool {
	if len(path) < 3 {
		return false
	}
	return geometry.Distance(path[0], path[len(path)-1]) < threshold
}

// Vertices убирает совпадающие точки и дубль замыкания.
func Vertices(path []models.Point, threshold float64) []models.Point {
	return geometry.Dedupe(path, threshold)
}

// ============================================================
// Synthesizer
// ============================================================

// Adder принимает синтезированную комнату.
type Adder interface {
	Add(obj *models.SceneObject) error
}

type Options struct {
	Style          models.StylePreset
	DefaultPattern string
	PatternScale   float64
	Threshold      float64
	NewID          func() string
}

type Synthesizer struct {
	canvas Adder
	opts   Options
}

func NewSynthesizer(canvas Adder, opts Options) *Synthesizer {
	if opts.PatternScale <= 0 {
		opts.PatternScale = 1
	}
	return &Synthesizer{canvas: canvas, opts: opts}
}

// Synthesize строит комнату по замкнутому пути и регистрирует ее на канве.
// walls — сегменты контура в порядке обхода; их внутренние углы становятся
// внутренней границей комнаты.
func (s *Synthesizer) Synthesize(path []models.Point, walls []*models.WallSegment) (*models.SceneObject, error) {
	points := Vertices(path, s.opts.Threshold)
	if len(points) < 3 {
		return nil, fmt.Errorf("synthesize room from %d vertices: %w", len(points), ErrDegenerateRoom)
	}
	if math.Abs(geometry.SignedArea(points)) < geometry.Epsilon {
		return nil, fmt.Errorf("synthesize room with zero area: %w", ErrDegenerateRoom)
	}

	inner := points
	if len(walls) == len(points) {
		inner = make([]models.Point, len(walls))
		for i, w := range walls {
			inner[i] = w.InnerStart
		}
	}

	obj := &models.SceneObject{
		ID:          s.opts.NewID(),
		Name:        models.NameRoom,
		Type:        models.TypePolygon,
		ScaleX:      1,
		ScaleY:      1,
		Points:      points,
		InnerPoints: append([]models.Point(nil), inner...),
	}
	s.opts.Style.Apply(obj)
	SetBounds(obj, points)

	if s.opts.DefaultPattern != "" {
		obj.Pattern = &models.PatternFill{
			SourceURL: s.opts.DefaultPattern,
			Repeat:    "repeat",
			ScaleX:    s.opts.PatternScale,
			ScaleY:    s.opts.PatternScale,
		}
	}

	if err := s.canvas.Add(obj); err != nil {
		return nil, fmt.Errorf("register room: %w", err)
	}
	return obj, nil
}

// SetBounds выставляет left/top/width/height по точкам.
func SetBounds(obj *models.SceneObject, points []models.Point) {
	minX, minY, maxX, maxY := geometry.Bounds(points)
	obj.Left = minX
	obj.Top = minY
	obj.Width = maxX - minX
	obj.Height = maxY - minY
}

// FromObject собирает RoomPolygon из объекта канвы.
func FromObject(obj *models.SceneObject) models.RoomPolygon {
	room := models.RoomPolygon{
		ID:     obj.ID,
		Points: append([]models.Point(nil), obj.Points...),
		Inner:  append([]models.Point(nil), obj.InnerPoints...),
	}
	if obj.Pattern != nil {
		room.FillPattern = obj.Pattern.SourceURL
	}
	return room
}
