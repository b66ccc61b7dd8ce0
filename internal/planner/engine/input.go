package engine

import (
	"context"
	"math"
	"strings"

	"floorplan/internal/planner/models"
	"floorplan/internal/planner/walls"
)

// ============================================================
// Modes & input events
// ============================================================

type Mode int

const (
	ModeSelect Mode = iota
	ModeDraw
	ModePan
)

func (m Mode) String() string {
	switch m {
	case ModeDraw:
		return "draw"
	case ModePan:
		return "pan"
	default:
		return "select"
	}
}

// ParseMode разбирает имя режима; неизвестное имя дает ModeSelect.
func ParseMode(s string) Mode {
	switch strings.ToLower(s) {
	case "draw":
		return ModeDraw
	case "pan":
		return ModePan
	default:
		return ModeSelect
	}
}

// Pointer описывает событие указателя в экранных координатах.
type Pointer struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Button int     `json:"button"`
}

func (p Pointer) screen() models.Point { return models.Point{X: p.X, Y: p.Y} }

// Key описывает нажатие клавиши.
type Key struct {
	Key   string `json:"key"`
	Ctrl  bool   `json:"ctrl"`
	Shift bool   `json:"shift"`
	Meta  bool   `json:"meta"`
}

// tool обрабатывает ввод активного режима. activate/release
// вызываются ровно один раз при смене режима.
type tool interface {
	activate(ctx context.Context)
	release(ctx context.Context)
	pointerDown(ctx context.Context, p Pointer)
	pointerMove(ctx context.Context, p Pointer)
	pointerUp(ctx context.Context, p Pointer)
}

func (e *Editor) setMode(ctx context.Context, m Mode) {
	if e.mode == m {
		return
	}
	e.tools[e.mode].release(ctx)
	e.mode = m
	e.tools[m].activate(ctx)
	e.log.Debug("mode changed", "mode", m.String())
}

func (e *Editor) OnPointerDown(ctx context.Context, p Pointer) {
	e.tools[e.mode].pointerDown(ctx, p)
}

func (e *Editor) OnPointerMove(ctx context.Context, p Pointer) {
	e.tools[e.mode].pointerMove(ctx, p)
}

func (e *Editor) OnPointerUp(ctx context.Context, p Pointer) {
	e.tools[e.mode].pointerUp(ctx, p)
}

// OnWheel масштабирует вокруг курсора.
func (e *Editor) OnWheel(deltaY float64, at Pointer) float64 {
	return e.Zoom(math.Pow(0.999, deltaY), at.screen())
}

// OnKey обрабатывает горячие клавиши. Возвращает false для
// неизвестных комбинаций.
func (e *Editor) OnKey(ctx context.Context, k Key) bool {
	mod := k.Ctrl || k.Meta
	key := strings.ToLower(k.Key)

	switch {
	case mod && key == "z" && k.Shift, mod && key == "y":
		if _, err := e.Redo(ctx); err != nil {
			e.log.Warn("redo failed", "err", err)
		}
	case mod && key == "z":
		if _, err := e.Undo(ctx); err != nil {
			e.log.Warn("undo failed", "err", err)
		}
	case key == "escape" || key == "enter":
		if e.mode != ModeDraw {
			return false
		}
		e.FinishDrawWall(ctx)
	case key == "w" && !mod:
		if e.mode == ModeDraw {
			e.FinishDrawWall(ctx)
		} else {
			e.StartDrawWall(ctx)
		}
	case key == "delete" || key == "backspace":
		if e.selected == "" {
			return false
		}
		if err := e.DeleteObject(e.selected); err != nil {
			e.log.Warn("delete failed", "object", e.selected, "err", err)
		}
	default:
		return false
	}
	return true
}

// ============================================================
// Draw tool
// ============================================================

type drawTool struct {
	e *Editor
}

func (t *drawTool) activate(context.Context) {
	t.e.selected = ""
	t.e.walls.Start()
}

// release завершает текущий жест; удаляются только временные объекты.
func (t *drawTool) release(ctx context.Context) {
	if t.e.walls.IsDrawing() {
		t.e.finishGesture(ctx)
	}
}

func (t *drawTool) pointerDown(ctx context.Context, p Pointer) {
	if !t.e.walls.IsDrawing() {
		t.e.walls.Start()
	}
	pos := t.e.view.ToCanvas(p.screen())
	if t.e.walls.PlacePoint(pos) == walls.PlaceClosed {
		// жест уже завершен билдером
		t.e.onFinished(ctx, t.e.walls.LastFinish())
	}
}

func (t *drawTool) pointerMove(_ context.Context, p Pointer) {
	t.e.walls.UpdatePreview(t.e.view.ToCanvas(p.screen()))
}

func (t *drawTool) pointerUp(context.Context, Pointer) {}

// ============================================================
// Pan tool
// ============================================================

type panTool struct {
	e        *Editor
	dragging bool
	last     models.Point
}

func (t *panTool) activate(context.Context) {}

func (t *panTool) release(context.Context) { t.dragging = false }

func (t *panTool) pointerDown(_ context.Context, p Pointer) {
	t.dragging = true
	t.last = p.screen()
}

func (t *panTool) pointerMove(_ context.Context, p Pointer) {
	if !t.dragging {
		return
	}
	cur := p.screen()
	t.e.Pan(cur.X-t.last.X, cur.Y-t.last.Y)
	t.last = cur
}

func (t *panTool) pointerUp(context.Context, Pointer) { t.dragging = false }

// ============================================================
// Select tool
// ============================================================

type selectTool struct {
	e        *Editor
	dragging bool
	moved    bool
	last     models.Point
}

func (t *selectTool) activate(context.Context) {}

func (t *selectTool) release(context.Context) {
	t.dragging = false
	t.e.selected = ""
}

func (t *selectTool) pointerDown(_ context.Context, p Pointer) {
	pos := t.e.view.ToCanvas(p.screen())
	t.e.selected = t.e.hitTest(pos)
	t.dragging = t.e.selected != ""
	t.moved = false
	t.last = pos
}

func (t *selectTool) pointerMove(_ context.Context, p Pointer) {
	if !t.dragging {
		return
	}
	obj, ok := t.e.scene.Get(t.e.selected)
	if !ok || obj.IsFixed() || obj.TransformLocked() {
		return
	}
	pos := t.e.view.ToCanvas(p.screen())
	obj.Left += pos.X - t.last.X
	obj.Top += pos.Y - t.last.Y
	t.last = pos
	t.moved = true
}

func (t *selectTool) pointerUp(context.Context, Pointer) {
	if t.moved {
		t.e.commit()
	}
	t.dragging = false
	t.moved = false
}

// hitTest возвращает верхний выбираемый объект под точкой.
func (e *Editor) hitTest(p models.Point) string {
	objs := e.scene.Objects()
	for i := len(objs) - 1; i >= 0; i-- {
		o := objs[i]
		if o.Transient || !o.Selectable {
			continue
		}
		w := o.Width * nonZero(o.ScaleX)
		h := o.Height * nonZero(o.ScaleY)
		if p.X >= o.Left && p.X <= o.Left+w && p.Y >= o.Top && p.Y <= o.Top+h {
			return o.ID
		}
	}
	return ""
}

func nonZero(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}
