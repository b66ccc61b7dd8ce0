package engine

import (
	"context"
	"errors"
	"image"
	"time"

	"floorplan/internal/planner/models"
	"floorplan/internal/planner/patterns"
	"floorplan/internal/planner/rooms"
	"floorplan/internal/planner/scene"
)

var (
	ErrNotFound       = scene.ErrNotFound
	ErrDegenerateRoom = rooms.ErrDegenerateRoom
	ErrFixedElement   = errors.New("fixed element cannot be changed")
	ErrNotRoom        = errors.New("object is not a room")
	ErrInvalidObject  = errors.New("invalid object")
	ErrNoStore        = errors.New("no persistence configured")
)

// Settings задает параметры движка. Нулевые поля заменяются значениями по умолчанию.
type Settings struct {
	SubGridSize    float64
	SnapThreshold  float64
	WallThickness  float64
	MaxHistory     int
	MinZoom        float64
	MaxZoom        float64
	MiterLimit     float64
	ResizeDebounce time.Duration

	Width  float64
	Height float64

	DefaultPattern string
	PatternScale   float64
}

func DefaultSettings() Settings {
	return Settings{
		SubGridSize:    20,
		SnapThreshold:  15,
		WallThickness:  20,
		MaxHistory:     50,
		MinZoom:        0.2,
		MaxZoom:        4,
		MiterLimit:     4,
		ResizeDebounce: 100 * time.Millisecond,
		Width:          1280,
		Height:         800,
		DefaultPattern: "patterns/parquet.png",
		PatternScale:   0.5,
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.SubGridSize <= 0 {
		s.SubGridSize = d.SubGridSize
	}
	if s.SnapThreshold <= 0 {
		s.SnapThreshold = d.SnapThreshold
	}
	if s.WallThickness <= 0 {
		s.WallThickness = d.WallThickness
	}
	if s.MaxHistory <= 0 {
		s.MaxHistory = d.MaxHistory
	}
	if s.MinZoom <= 0 {
		s.MinZoom = d.MinZoom
	}
	if s.MaxZoom <= 0 {
		s.MaxZoom = d.MaxZoom
	}
	if s.MiterLimit <= 0 {
		s.MiterLimit = d.MiterLimit
	}
	if s.ResizeDebounce <= 0 {
		s.ResizeDebounce = d.ResizeDebounce
	}
	if s.Width <= 0 {
		s.Width = d.Width
	}
	if s.Height <= 0 {
		s.Height = d.Height
	}
	if s.PatternScale <= 0 {
		s.PatternScale = d.PatternScale
	}
	return s
}

// ============================================================
// Collaborators
// ============================================================

// Store хранит сериализованное состояния дизайна.
type Store interface {
	SaveDesign(ctx context.Context, designID, state string) error
	LoadState(ctx context.Context, designID string) (string, bool, error)
}

// PatternApplier ставит объекту текстурную заливку.
type PatternApplier interface {
	ApplyPattern(ctx context.Context, obj *models.SceneObject, url string, opts patterns.PatternOptions) error
}

// ImageLoader загружает картинки паттернов при восстановлении истории.
type ImageLoader interface {
	Load(ctx context.Context, url string) (image.Image, error)
}
