// Package engine собирает движок планировщика: сцена, вьюпорт, стены,
// комнаты и история за одним диспетчером ввода.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"floorplan/internal/planner/history"
	"floorplan/internal/planner/models"
	"floorplan/internal/planner/patterns"
	"floorplan/internal/planner/plog"
	"floorplan/internal/planner/rooms"
	"floorplan/internal/planner/scene"
	"floorplan/internal/planner/viewport"
	"floorplan/internal/planner/walls"
)

const GridID = "design-grid"

// Deps собирает внешние зависимости редактора. Любая может быть nil.
type Deps struct {
	Store    Store
	Patterns PatternApplier
	Images   ImageLoader
	Styles   *models.Styles
	Logger   *slog.Logger
	NewID    func() string
}

// Editor держит один открытый дизайн. Не потокобезопасен: вызывающий
// сериализует доступ.
type Editor struct {
	designID string
	settings Settings
	styles   models.Styles
	log      *slog.Logger
	newID    func() string

	scene   *scene.Scene
	view    *viewport.Viewport
	walls   *walls.Builder
	history *history.Manager

	store    Store
	patterns PatternApplier

	mode     Mode
	tools    map[Mode]tool
	selected string
	saveErr  error
}

func New(designID string, settings Settings, deps Deps) *Editor {
	settings = settings.withDefaults()
	e := &Editor{
		designID: designID,
		settings: settings,
		styles:   models.DefaultStyles(),
		log:      plog.OrNop(deps.Logger).With("design", designID),
		newID:    deps.NewID,
		scene:    scene.New(),
		store:    deps.Store,
		patterns: deps.Patterns,
	}
	if deps.Styles != nil {
		e.styles = *deps.Styles
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}

	e.view = viewport.New(viewport.Config{
		SubGridSize: settings.SubGridSize,
		MinZoom:     settings.MinZoom,
		MaxZoom:     settings.MaxZoom,
		Width:       settings.Width,
		Height:      settings.Height,
	})

	synth := rooms.NewSynthesizer(e.scene, rooms.Options{
		Style:          e.styles.Room,
		DefaultPattern: settings.DefaultPattern,
		PatternScale:   settings.PatternScale,
		Threshold:      settings.SnapThreshold,
		NewID:          e.newID,
	})
	e.walls = walls.NewBuilder(e.scene, e.view, synth, walls.Options{
		Thickness:     settings.WallThickness,
		SnapThreshold: settings.SnapThreshold,
		MiterLimit:    settings.MiterLimit,
		Styles:        e.styles,
		NewID:         e.newID,
		Logger:        e.log,
		Commit:        e.commit,
	})

	e.history = history.New(e, history.Options{
		MaxLength: settings.MaxHistory,
		Images:    deps.Images,
		Logger:    e.log,
	})

	e.tools = map[Mode]tool{
		ModeSelect: &selectTool{e: e},
		ModeDraw:   &drawTool{e: e},
		ModePan:    &panTool{e: e},
	}
	e.mode = ModeSelect

	e.ensureGrid()
	e.scene.Reorder()
	e.history.Reset()
	return e
}

// ============================================================
// history.Source
// ============================================================

func (e *Editor) Objects() []*models.SceneObject { return e.scene.Objects() }
func (e *Editor) UnfinishedID() string           { return e.walls.UnfinishedID() }
func (e *Editor) CompletedIDs() []string         { return e.walls.CompletedIDs() }

// IsDrawing сообщает, идет ли жест рисования стены.
func (e *Editor) IsDrawing() bool { return e.walls.IsDrawing() }

// Apply заменяет сцену объектами снимка и восстанавливает состояние стен.
func (e *Editor) Apply(objects []*models.SceneObject, unfinishedID string, completed []string) error {
	if err := e.scene.Replace(objects); err != nil {
		return err
	}
	e.ensureGrid()
	e.scene.Reorder()
	e.walls.Restore(unfinishedID, completed)
	e.selected = ""
	return nil
}

// ============================================================
// Tool surface
// ============================================================

// StartDrawWall включает режим рисования стен.
func (e *Editor) StartDrawWall(ctx context.Context) {
	e.setMode(ctx, ModeDraw)
}

// FinishDrawWall завершает жест и выключает режим рисования.
func (e *Editor) FinishDrawWall(ctx context.Context) walls.FinishResult {
	res := e.finishGesture(ctx)
	e.setMode(ctx, ModeSelect)
	return res
}

// StartPan включает режим панорамирования.
func (e *Editor) StartPan(ctx context.Context) {
	e.setMode(ctx, ModePan)
}

// Select возвращает режим выбора.
func (e *Editor) Select(ctx context.Context) {
	e.setMode(ctx, ModeSelect)
}

func (e *Editor) Undo(ctx context.Context) (bool, error) {
	return e.history.Undo(ctx)
}

func (e *Editor) Redo(ctx context.Context) (bool, error) {
	return e.history.Redo(ctx)
}

// Zoom масштабирует вокруг экранной точки и возвращает новый масштаб.
func (e *Editor) Zoom(factor float64, center models.Point) float64 {
	return e.view.Zoom(factor, center)
}

func (e *Editor) Pan(dx, dy float64) {
	e.view.Pan(dx, dy)
}

// Resize пересчитывает сетку под новый размер вьюпорта.
func (e *Editor) Resize(width, height float64) {
	e.view.Resize(width, height)
	e.ensureGrid()
}

// ============================================================
// Objects
// ============================================================

// DeleteObject удаляет объект. Стены обрезают незаконченную цепочку,
// сетку удалить нельзя.
func (e *Editor) DeleteObject(id string) error {
	obj, ok := e.scene.Get(id)
	if !ok {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	switch {
	case obj.Name == models.NameGrid:
		return fmt.Errorf("delete %s: %w", id, ErrFixedElement)
	case obj.IsWall():
		if err := e.walls.RemoveWall(id); err != nil {
			return fmt.Errorf("delete %s: %w", id, err)
		}
	default:
		if _, err := e.scene.Remove(id); err != nil {
			return fmt.Errorf("delete %s: %w", id, err)
		}
		e.commit()
	}
	if e.selected == id {
		e.selected = ""
	}
	e.log.Debug("object deleted", "object", id)
	return nil
}

type FurnitureSpec struct {
	Name   string  `json:"name"`
	Type   string  `json:"type"`
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Angle  float64 `json:"angle"`
	Src    string  `json:"src"`
	Fill   string  `json:"fill"`
}

// AddFurniture добавляет свободный объект поверх стен.
func (e *Editor) AddFurniture(spec FurnitureSpec) (*models.SceneObject, error) {
	if spec.Width <= 0 || spec.Height <= 0 {
		return nil, fmt.Errorf("add furniture: size %vx%v: %w", spec.Width, spec.Height, ErrInvalidObject)
	}
	obj := &models.SceneObject{
		ID:     e.newID(),
		Name:   spec.Name,
		Type:   spec.Type,
		Left:   spec.Left,
		Top:    spec.Top,
		Width:  spec.Width,
		Height: spec.Height,
		Angle:  spec.Angle,
		ScaleX: 1,
		ScaleY: 1,
		Src:    spec.Src,
	}
	if obj.Name == "" {
		obj.Name = models.NameFurniture
	}
	if obj.Type == "" {
		obj.Type = models.TypeRect
		if obj.Src != "" {
			obj.Type = models.TypeImage
		}
	}
	e.styles.Furniture.Apply(obj)
	if spec.Fill != "" {
		obj.Fill = spec.Fill
	}
	if obj.IsFixed() {
		return nil, fmt.Errorf("add furniture named %q: %w", obj.Name, ErrFixedElement)
	}
	if err := e.scene.Add(obj); err != nil {
		return nil, fmt.Errorf("add furniture: %w", err)
	}
	e.commit()
	return obj, nil
}

// Transform задает частичное изменение положения объекта.
type Transform struct {
	Left   *float64 `json:"left,omitempty"`
	Top    *float64 `json:"top,omitempty"`
	Angle  *float64 `json:"angle,omitempty"`
	ScaleX *float64 `json:"scaleX,omitempty"`
	ScaleY *float64 `json:"scaleY,omitempty"`
}

// TransformObject двигает, вращает или масштабирует объект.
// Сетка, стены и комнаты заблокированы.
func (e *Editor) TransformObject(id string, t Transform) error {
	obj, ok := e.scene.Get(id)
	if !ok {
		return fmt.Errorf("transform %s: %w", id, ErrNotFound)
	}
	if obj.IsFixed() || obj.TransformLocked() {
		return fmt.Errorf("transform %s: %w", id, ErrFixedElement)
	}
	if t.Left != nil {
		obj.Left = *t.Left
	}
	if t.Top != nil {
		obj.Top = *t.Top
	}
	if t.Angle != nil {
		obj.Angle = *t.Angle
	}
	if t.ScaleX != nil && *t.ScaleX > 0 {
		obj.ScaleX = *t.ScaleX
	}
	if t.ScaleY != nil && *t.ScaleY > 0 {
		obj.ScaleY = *t.ScaleY
	}
	e.commit()
	return nil
}

// SetRoomPattern меняет текстуру комнаты. Ошибка загрузки возвращается,
// комната при этом получает плоскую заливку.
func (e *Editor) SetRoomPattern(ctx context.Context, id, url string, scale float64) error {
	obj, ok := e.scene.Get(id)
	if !ok {
		return fmt.Errorf("set pattern %s: %w", id, ErrNotFound)
	}
	if obj.Name != models.NameRoom {
		return fmt.Errorf("set pattern %s: %w", id, ErrNotRoom)
	}
	scale = models.ClampPatternScale(scale, e.settings.PatternScale)
	err := e.applyPattern(ctx, obj, url, scale)
	e.commit()
	return err
}

func (e *Editor) BringForward(ids ...string) {
	e.scene.BringForward(ids...)
	e.history.Snapshot()
}

func (e *Editor) SendBackward(ids ...string) {
	e.scene.SendBackward(ids...)
	e.history.Snapshot()
}

// ============================================================
// Accessors
// ============================================================

func (e *Editor) DesignID() string                             { return e.designID }
func (e *Editor) Settings() Settings                           { return e.settings }
func (e *Editor) Mode() Mode                                   { return e.mode }
func (e *Editor) Viewport() *viewport.Viewport                 { return e.view }
func (e *Editor) Selected() string                             { return e.selected }
func (e *Editor) Path() []models.Point                         { return e.walls.Path() }
func (e *Editor) Unfinished() *models.Chain                    { return e.walls.Unfinished() }
func (e *Editor) Object(id string) (*models.SceneObject, bool) { return e.scene.Get(id) }

// Rooms возвращает комнаты сцены.
func (e *Editor) Rooms() []models.RoomPolygon {
	var out []models.RoomPolygon
	for _, o := range e.scene.Objects() {
		if o.Name == models.NameRoom {
			out = append(out, rooms.FromObject(o))
		}
	}
	return out
}

// State содержит сводку для клиентов.
type State struct {
	DesignID     string         `json:"designId"`
	Mode         string         `json:"mode"`
	Drawing      bool           `json:"drawing"`
	Path         []models.Point `json:"path"`
	Viewport     viewport.State `json:"viewport"`
	UnfinishedID string         `json:"unfinishedWallId,omitempty"`
	CompletedIDs []string       `json:"completedWallIds"`
	Objects      int            `json:"objects"`
	Rooms        int            `json:"rooms"`
	CanUndo      bool           `json:"canUndo"`
	CanRedo      bool           `json:"canRedo"`
	Selected     string         `json:"selected,omitempty"`
	SaveError    string         `json:"saveError,omitempty"`
}

func (e *Editor) State() State {
	st := State{
		DesignID:     e.designID,
		Mode:         e.mode.String(),
		Drawing:      e.IsDrawing(),
		Path:         e.walls.Path(),
		Viewport:     e.view.State(),
		UnfinishedID: e.walls.UnfinishedID(),
		CompletedIDs: e.walls.CompletedIDs(),
		Objects:      e.scene.Len(),
		Rooms:        len(e.Rooms()),
		CanUndo:      e.history.CanUndo(),
		CanRedo:      e.history.CanRedo(),
		Selected:     e.selected,
	}
	if e.saveErr != nil {
		st.SaveError = e.saveErr.Error()
	}
	return st
}

// ============================================================
// internals
// ============================================================

// commit восстанавливает z-порядок и просит снимок истории.
func (e *Editor) commit() {
	e.scene.Reorder()
	e.history.Snapshot()
}

func (e *Editor) finishGesture(ctx context.Context) walls.FinishResult {
	res := e.walls.Finish()
	e.onFinished(ctx, res)
	return res
}

// onFinished загружает текстуру новой комнаты.
func (e *Editor) onFinished(ctx context.Context, res walls.FinishResult) {
	if res.Room == nil || res.Room.Pattern == nil {
		return
	}
	p := res.Room.Pattern
	if err := e.applyPattern(ctx, res.Room, p.SourceURL, p.ScaleX); err != nil {
		e.log.Warn("room pattern not loaded", "room", res.Room.ID, "err", err)
	}
}

func (e *Editor) applyPattern(ctx context.Context, obj *models.SceneObject, url string, scale float64) error {
	if e.patterns == nil {
		obj.Pattern = &models.PatternFill{SourceURL: url, Repeat: "repeat", ScaleX: scale, ScaleY: scale}
		return nil
	}
	return e.patterns.ApplyPattern(ctx, obj, url, patterns.PatternOptions{ScaleX: scale, ScaleY: scale})
}

// ensureGrid создает объект сетки или подгоняет его под текущий вьюпорт.
func (e *Editor) ensureGrid() {
	ext := e.view.GridExtent()
	grid := e.scene.Grid()
	if grid == nil {
		grid = &models.SceneObject{ID: GridID, Name: models.NameGrid, Type: models.TypeRect, ScaleX: 1, ScaleY: 1}
		e.styles.Grid.Apply(grid)
		if err := e.scene.Add(grid); err != nil {
			e.log.Error("grid not added", "err", err)
			return
		}
	}
	grid.Left = ext.X
	grid.Top = ext.Y
	grid.Width = ext.Width
	grid.Height = ext.Height
}
