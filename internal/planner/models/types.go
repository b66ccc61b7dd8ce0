package models

import (
	"image"
	"math"
)

// ============================================================
// Geometry primitives
// ============================================================

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add возвращает сумму векторов.
func (p Point) Add(o Point) Point { return Point{X: p.X + o.X, Y: p.Y + o.Y} }

// Sub возвращает разность векторов.
func (p Point) Sub(o Point) Point { return Point{X: p.X - o.X, Y: p.Y - o.Y} }

// Mul масштабирует вектор.
func (p Point) Mul(k float64) Point { return Point{X: p.X * k, Y: p.Y * k} }

// ============================================================
// Object tags
// ============================================================

// Имена объектов канвы. Поле name сериализуется как есть.
const (
	NameGrid         = "designGrid"
	NameRoom         = "room"
	NameWallGroup    = "wallGroup"
	NameFinishedWall = "finishedWall"
	NameFurniture    = "furniture"

	// Временные объекты, не попадают ни в сериализацию, ни в историю.
	NameWallPreview  = "wallPreview"
	NameWallEndpoint = "wallEndpoint"
)

// Типы геометрии объекта.
const (
	TypeRect    = "rect"
	TypePolygon = "polygon"
	TypePath    = "path"
	TypeLine    = "line"
	TypeImage   = "image"
	TypeCircle  = "circle"
)

// ============================================================
// Walls
// ============================================================

// WallSegment описывает один прямой участок стены.
// Inner — сторона по +нормали (слева по ходу рисования); после замыкания
// контура стороны ориентируются так, что Inner смотрит внутрь комнаты.
type WallSegment struct {
	ID         string  `json:"id"`
	ChainID    string  `json:"chainId"`
	Index      int     `json:"segmentIndex"`
	Start      Point   `json:"start"`
	End        Point   `json:"end"`
	InnerStart Point   `json:"innerStart"`
	InnerEnd   Point   `json:"innerEnd"`
	OuterStart Point   `json:"outerStart"`
	OuterEnd   Point   `json:"outerEnd"`
	Thickness  float64 `json:"thickness"`
}

// Outline возвращает контур стены по часовой стрелке от InnerStart.
func (w WallSegment) Outline() []Point {
	return []Point{w.InnerStart, w.InnerEnd, w.OuterEnd, w.OuterStart}
}

// Chain — цепочка сегментов одного жеста. Незамкнутая цепочка
// хранится как UnfinishedWall и может быть продолжена с любого конца.
type Chain struct {
	ID         string
	Points     []Point
	SegmentIDs []string
}

// Clone возвращает независимую копию цепочки.
func (c *Chain) Clone() *Chain {
	if c == nil {
		return nil
	}
	return &Chain{
		ID:         c.ID,
		Points:     append([]Point(nil), c.Points...),
		SegmentIDs: append([]string(nil), c.SegmentIDs...),
	}
}

// ============================================================
// Rooms
// ============================================================

// RoomPolygon описывает комнату, синтезированную из замкнутого контура стен.
type RoomPolygon struct {
	ID          string
	Points      []Point
	Inner       []Point
	FillPattern string
}

// ============================================================
// Patterns
// ============================================================

// PatternFill — заливка текстурой. Image не сериализуется: при
// восстановлении истории картинка загружается заново по SourceURL.
type PatternFill struct {
	SourceURL string
	Repeat    string
	ScaleX    float64
	ScaleY    float64
	Flat      bool
	FlatColor string
	Image     image.Image
}

// MaxPatternScale ограничивает масштаб текстуры.
const MaxPatternScale = 16.0

// ClampPatternScale приводит масштаб текстуры к (0, MaxPatternScale].
// Нулевой или отрицательный масштаб заменяется на def.
func ClampPatternScale(scale, def float64) float64 {
	switch {
	case math.IsNaN(scale) || scale <= 0:
		return def
	case scale > MaxPatternScale:
		return MaxPatternScale
	}
	return scale
}

// NeutralFill задает плоскую заливку на случай, когда картинка не загрузилась.
func NeutralFill(url string, scaleX, scaleY float64) *PatternFill {
	return &PatternFill{
		SourceURL: url,
		Repeat:    "repeat",
		ScaleX:    scaleX,
		ScaleY:    scaleY,
		Flat:      true,
		FlatColor: "#E0E0E0",
	}
}

// ============================================================
// Canvas objects
// ============================================================

// Locks хранит флаги блокировки и интерактивности объекта.
type Locks struct {
	Selectable    bool `json:"selectable"`
	Evented       bool `json:"evented"`
	HasControls   bool `json:"hasControls"`
	LockMovementX bool `json:"lockMovementX"`
	LockMovementY bool `json:"lockMovementY"`
	LockRotation  bool `json:"lockRotation"`
	LockScalingX  bool `json:"lockScalingX"`
	LockScalingY  bool `json:"lockScalingY"`
}

// TransformLocked сообщает, что объект нельзя двигать, вращать и масштабировать.
func (l Locks) TransformLocked() bool {
	return l.LockMovementX && l.LockMovementY && l.LockRotation && l.LockScalingX && l.LockScalingY
}

// SceneObject описывает объект канвы в том виде, в каком он сериализуется.
type SceneObject struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Type   string  `json:"type"`
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	Angle  float64 `json:"angle,omitempty"`
	ScaleX float64 `json:"scaleX"`
	ScaleY float64 `json:"scaleY"`

	Points      []Point `json:"points,omitempty"`
	InnerPoints []Point `json:"innerPoints,omitempty"`
	Path        string  `json:"path,omitempty"`
	Src         string  `json:"src,omitempty"`

	Fill        string  `json:"fill,omitempty"`
	Stroke      string  `json:"stroke,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
	Opacity     float64 `json:"opacity,omitempty"`

	Locks

	Wall *WallSegment `json:"wall,omitempty"`

	Transient bool         `json:"-"`
	Pattern   *PatternFill `json:"-"`
}

// Clone возвращает глубокую копию объекта. Картинка паттерна разделяется.
func (o *SceneObject) Clone() *SceneObject {
	cp := *o
	cp.Points = append([]Point(nil), o.Points...)
	cp.InnerPoints = append([]Point(nil), o.InnerPoints...)
	if o.Wall != nil {
		w := *o.Wall
		cp.Wall = &w
	}
	if o.Pattern != nil {
		p := *o.Pattern
		cp.Pattern = &p
	}
	return &cp
}

// IsWall сообщает, является ли объект сегментом стены.
func (o *SceneObject) IsWall() bool {
	return o.Name == NameWallGroup || o.Name == NameFinishedWall
}

// IsFixed сообщает, что объект фиксирован. Сетка, стены и комнаты не
// участвуют в ручном изменении z-порядка.
func (o *SceneObject) IsFixed() bool {
	return o.Name == NameGrid || o.Name == NameRoom || o.IsWall()
}
