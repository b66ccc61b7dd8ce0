package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"strings"
	"testing"

	"floorplan/internal/planner/models"
	"floorplan/internal/planner/patterns"
	"floorplan/internal/planner/scene"
)

type memStore struct {
	states map[string]string
	err    error
}

func (s *memStore) SaveDesign(_ context.Context, id, state string) error {
	if s.err != nil {
		return s.err
	}
	s.states[id] = state
	return nil
}

func (s *memStore) LoadState(_ context.Context, id string) (string, bool, error) {
	state, ok := s.states[id]
	return state, ok, nil
}

type fakePatterns struct {
	fail map[string]bool
}

func (f *fakePatterns) Load(_ context.Context, url string) (image.Image, error) {
	if f.fail[url] {
		return nil, errors.New("unreachable")
	}
	return image.NewRGBA(image.Rect(0, 0, 4, 4)), nil
}

func (f *fakePatterns) ApplyPattern(ctx context.Context, obj *models.SceneObject, url string, opts patterns.PatternOptions) error {
	img, err := f.Load(ctx, url)
	if err != nil {
		obj.Pattern = models.NeutralFill(url, opts.ScaleX, opts.ScaleY)
		return err
	}
	obj.Pattern = &models.PatternFill{SourceURL: url, Repeat: "repeat", ScaleX: opts.ScaleX, ScaleY: opts.ScaleY, Image: img}
	return nil
}

func newEditor(t *testing.T) (*Editor, *memStore) {
	t.Helper()
	store := &memStore{states: map[string]string{}}
	pats := &fakePatterns{fail: map[string]bool{}}
	n := 0
	e := New("design-1", DefaultSettings(), Deps{
		Store:    store,
		Patterns: pats,
		Images:   pats,
		NewID: func() string {
			n++
			return fmt.Sprintf("obj-%d", n)
		},
	})
	return e, store
}

func click(ctx context.Context, e *Editor, points ...models.Point) {
	for _, p := range points {
		e.OnPointerDown(ctx, Pointer{X: p.X, Y: p.Y})
		e.OnPointerUp(ctx, Pointer{X: p.X, Y: p.Y})
	}
}

func pt(x, y float64) models.Point { return models.Point{X: x, Y: y} }

func count(e *Editor, name string) int {
	n := 0
	for _, o := range e.Objects() {
		if o.Name == name {
			n++
		}
	}
	return n
}

func TestClosedRectangleMakesOneRoom(t *testing.T) {
	ctx := context.Background()
	e, _ := newEditor(t)
	e.StartDrawWall(ctx)
	click(ctx, e, pt(0, 0), pt(200, 0), pt(200, 200), pt(0, 200), pt(4, 3))

	rooms := e.Rooms()
	if len(rooms) != 1 {
		t.Fatalf("rooms = %d, want 1", len(rooms))
	}
	if len(rooms[0].Points) != 4 {
		t.Errorf("room vertices = %d, want 4", len(rooms[0].Points))
	}
	if e.Unfinished() != nil {
		t.Error("unfinished chain left after closure")
	}
	room, _ := e.Object(rooms[0].ID)
	if room.Pattern == nil || room.Pattern.Image == nil {
		t.Errorf("room pattern not applied: %+v", room.Pattern)
	}
	if !scene.Ordered(e.Objects()) {
		t.Error("z-order broken")
	}
	if e.Mode() != ModeDraw {
		t.Errorf("mode = %v, draw tool should stay active", e.Mode())
	}
}

func TestOpenPathLeavesUnfinishedChain(t *testing.T) {
	ctx := context.Background()
	e, _ := newEditor(t)
	e.StartDrawWall(ctx)
	click(ctx, e, pt(0, 0), pt(200, 0))
	res := e.FinishDrawWall(ctx)

	if res.UnfinishedID == "" || e.Unfinished() == nil {
		t.Fatal("no unfinished chain")
	}
	if len(e.Rooms()) != 0 {
		t.Errorf("rooms = %d, want 0", len(e.Rooms()))
	}
	if e.Mode() != ModeSelect {
		t.Errorf("mode = %v after finish", e.Mode())
	}
}

func TestResumedChainClosesIntoRoom(t *testing.T) {
	ctx := context.Background()
	e, _ := newEditor(t)
	e.StartDrawWall(ctx)
	click(ctx, e, pt(0, 0), pt(200, 0), pt(200, 200))
	e.FinishDrawWall(ctx)

	e.StartDrawWall(ctx)
	click(ctx, e, pt(198, 204), pt(0, 200), pt(0, 0))

	rooms := e.Rooms()
	if len(rooms) != 1 {
		t.Fatalf("rooms = %d, want 1", len(rooms))
	}
	if len(rooms[0].Points) != 4 {
		t.Errorf("room vertices = %d, want 4 distinct points across both sessions", len(rooms[0].Points))
	}
	if e.Unfinished() != nil {
		t.Error("resumed chain not consumed")
	}
}

func TestInverseZoomRestoresLevel(t *testing.T) {
	e, _ := newEditor(t)
	before := e.Viewport().ZoomLevel()
	e.Zoom(1.7, pt(300, 200))
	e.Zoom(1/1.7, pt(300, 200))
	if d := math.Abs(e.Viewport().ZoomLevel() - before); d > 1e-9 {
		t.Errorf("zoom drifted by %v", d)
	}
}

func TestUndoWhileDrawingKeepsScene(t *testing.T) {
	ctx := context.Background()
	e, _ := newEditor(t)
	e.StartDrawWall(ctx)
	click(ctx, e, pt(0, 0), pt(200, 0), pt(200, 200))

	before, _ := e.Serialize()
	if ok, err := e.Undo(ctx); ok || err != nil {
		t.Errorf("Undo while drawing = %v, %v", ok, err)
	}
	if !e.OnKey(ctx, Key{Key: "z", Ctrl: true}) {
		t.Error("ctrl+z not handled")
	}
	after, _ := e.Serialize()
	if string(before) != string(after) {
		t.Error("scene changed by undo while drawing")
	}
	if len(e.Path()) != 3 {
		t.Errorf("path = %v", e.Path())
	}
}

func TestUndoRedoAfterGesture(t *testing.T) {
	ctx := context.Background()
	e, _ := newEditor(t)
	e.StartDrawWall(ctx)
	click(ctx, e, pt(0, 0), pt(200, 0), pt(200, 200), pt(0, 200), pt(0, 0))
	e.FinishDrawWall(ctx)

	if len(e.Rooms()) != 1 {
		t.Fatal("room not created")
	}
	if ok, err := e.Undo(ctx); !ok || err != nil {
		t.Fatalf("Undo = %v, %v", ok, err)
	}
	if len(e.Rooms()) != 0 || count(e, models.NameWallGroup)+count(e, models.NameFinishedWall) != 0 {
		t.Errorf("undo did not remove the gesture: %d rooms", len(e.Rooms()))
	}
	if count(e, models.NameGrid) != 1 {
		t.Error("grid lost after undo")
	}
	if ok, _ := e.Redo(ctx); !ok {
		t.Fatal("Redo failed")
	}
	if len(e.Rooms()) != 1 || count(e, models.NameFinishedWall) != 4 {
		t.Errorf("redo did not restore the room")
	}
	room, _ := e.Object(e.Rooms()[0].ID)
	if room.Pattern == nil || room.Pattern.Image == nil {
		t.Error("pattern image not reloaded on redo")
	}
}

func TestUndoRestoresUnfinishedChain(t *testing.T) {
	ctx := context.Background()
	e, _ := newEditor(t)
	e.StartDrawWall(ctx)
	click(ctx, e, pt(0, 0), pt(100, 0))
	e.FinishDrawWall(ctx)
	id := e.Unfinished().ID

	e.StartDrawWall(ctx)
	click(ctx, e, pt(0, 100), pt(100, 100))
	e.FinishDrawWall(ctx)
	if e.Unfinished().ID == id {
		t.Fatal("second chain did not replace the first")
	}

	if ok, _ := e.Undo(ctx); !ok {
		t.Fatal("Undo failed")
	}
	if u := e.Unfinished(); u == nil || u.ID != id {
		t.Errorf("unfinished after undo = %+v, want %s", u, id)
	}
}

func TestKeyboardShortcuts(t *testing.T) {
	ctx := context.Background()
	e, _ := newEditor(t)

	if !e.OnKey(ctx, Key{Key: "w"}) || e.Mode() != ModeDraw {
		t.Fatalf("w did not start drawing, mode = %v", e.Mode())
	}
	click(ctx, e, pt(0, 0), pt(200, 0))
	if !e.OnKey(ctx, Key{Key: "Escape"}) || e.Mode() != ModeSelect {
		t.Fatalf("escape did not finish, mode = %v", e.Mode())
	}
	if e.Unfinished() == nil {
		t.Fatal("escape discarded the drawn wall")
	}
	if count(e, models.NameWallPreview)+count(e, models.NameWallEndpoint) != 0 {
		t.Error("transient objects left after escape")
	}

	e.OnKey(ctx, Key{Key: "z", Ctrl: true})
	if e.Unfinished() != nil {
		t.Error("ctrl+z did not undo the wall")
	}
	e.OnKey(ctx, Key{Key: "Z", Ctrl: true, Shift: true})
	if e.Unfinished() == nil {
		t.Error("ctrl+shift+z did not redo")
	}
	e.OnKey(ctx, Key{Key: "z", Meta: true})
	e.OnKey(ctx, Key{Key: "y", Ctrl: true})
	if e.Unfinished() == nil {
		t.Error("ctrl+y did not redo")
	}
	if e.OnKey(ctx, Key{Key: "Enter"}) {
		t.Error("enter handled outside draw mode")
	}
	if e.OnKey(ctx, Key{Key: "q"}) {
		t.Error("unknown key handled")
	}
}

func TestPreviewFollowsPointer(t *testing.T) {
	ctx := context.Background()
	e, _ := newEditor(t)
	e.StartDrawWall(ctx)
	click(ctx, e, pt(0, 0))
	e.OnPointerMove(ctx, Pointer{X: 120, Y: 0})
	if count(e, models.NameWallPreview) != 1 {
		t.Fatal("preview not shown")
	}
	data, _ := e.Serialize()
	if strings.Contains(string(data), models.NameWallPreview) {
		t.Error("preview serialized")
	}
	e.FinishDrawWall(ctx)
	if count(e, models.NameWallPreview) != 0 {
		t.Error("preview left after finish")
	}
}

func TestPanModeExclusive(t *testing.T) {
	ctx := context.Background()
	e, _ := newEditor(t)
	e.StartDrawWall(ctx)
	click(ctx, e, pt(0, 0), pt(100, 0))

	e.StartPan(ctx)
	if e.Mode() != ModePan || e.IsDrawing() {
		t.Fatalf("pan did not release the draw tool: mode %v drawing %v", e.Mode(), e.IsDrawing())
	}
	if e.Unfinished() == nil {
		t.Error("switching to pan lost the gesture")
	}
	e.OnPointerDown(ctx, Pointer{X: 10, Y: 10})
	e.OnPointerMove(ctx, Pointer{X: 40, Y: 30})
	e.OnPointerUp(ctx, Pointer{X: 40, Y: 30})
	e.OnPointerMove(ctx, Pointer{X: 90, Y: 90})
	if off := e.Viewport().Offset(); off != pt(30, 20) {
		t.Errorf("offset = %+v, want {30 20}", off)
	}
	if count(e, models.NameWallGroup) != 1 {
		t.Error("pan pointer events reached the wall builder")
	}
}

func TestWheelZoomClamped(t *testing.T) {
	e, _ := newEditor(t)
	for i := 0; i < 50; i++ {
		e.OnWheel(-500, Pointer{X: 100, Y: 100})
	}
	if z := e.Viewport().ZoomLevel(); z != e.Settings().MaxZoom {
		t.Errorf("zoom = %v, want clamp to %v", z, e.Settings().MaxZoom)
	}
	for i := 0; i < 50; i++ {
		e.OnWheel(500, Pointer{X: 100, Y: 100})
	}
	if z := e.Viewport().ZoomLevel(); z != e.Settings().MinZoom {
		t.Errorf("zoom = %v, want clamp to %v", z, e.Settings().MinZoom)
	}
}

func TestFurnitureLifecycle(t *testing.T) {
	ctx := context.Background()
	e, _ := newEditor(t)
	sofa, err := e.AddFurniture(FurnitureSpec{Left: 300, Top: 300, Width: 80, Height: 40})
	if err != nil {
		t.Fatalf("AddFurniture: %v", err)
	}
	lamp, _ := e.AddFurniture(FurnitureSpec{Name: "lamp", Left: 500, Top: 500, Width: 10, Height: 10})

	left := 320.0
	if err := e.TransformObject(sofa.ID, Transform{Left: &left}); err != nil {
		t.Fatalf("TransformObject: %v", err)
	}
	if sofa.Left != 320 {
		t.Errorf("Left = %v", sofa.Left)
	}
	if err := e.TransformObject(GridID, Transform{Left: &left}); !errors.Is(err, ErrFixedElement) {
		t.Errorf("grid transform err = %v", err)
	}

	e.BringForward(sofa.ID)
	objs := e.Objects()
	if objs[len(objs)-1].ID != sofa.ID {
		t.Errorf("sofa not on top after BringForward")
	}
	e.SendBackward(sofa.ID)
	objs = e.Objects()
	if objs[len(objs)-1].ID != lamp.ID {
		t.Errorf("lamp not on top after SendBackward")
	}

	e.OnPointerDown(ctx, Pointer{X: 330, Y: 310})
	if e.Selected() != sofa.ID {
		t.Fatalf("selected = %q, want sofa", e.Selected())
	}
	e.OnPointerMove(ctx, Pointer{X: 340, Y: 330})
	e.OnPointerUp(ctx, Pointer{X: 340, Y: 330})
	if sofa.Left != 330 || sofa.Top != 320 {
		t.Errorf("drag moved sofa to %v,%v", sofa.Left, sofa.Top)
	}

	if !e.OnKey(ctx, Key{Key: "Delete"}) {
		t.Fatal("delete key not handled")
	}
	if _, ok := e.Object(sofa.ID); ok {
		t.Error("sofa not deleted")
	}
	if err := e.DeleteObject(GridID); !errors.Is(err, ErrFixedElement) {
		t.Errorf("delete grid err = %v", err)
	}
	if err := e.DeleteObject("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete missing err = %v", err)
	}
}

func TestRoomIsLockedButPatternChangeable(t *testing.T) {
	ctx := context.Background()
	e, _ := newEditor(t)
	e.StartDrawWall(ctx)
	click(ctx, e, pt(0, 0), pt(200, 0), pt(200, 200), pt(0, 200), pt(0, 0))
	e.FinishDrawWall(ctx)
	id := e.Rooms()[0].ID

	x := 50.0
	if err := e.TransformObject(id, Transform{Left: &x}); !errors.Is(err, ErrFixedElement) {
		t.Errorf("room transform err = %v", err)
	}
	if err := e.SetRoomPattern(ctx, id, "tiles.png", 1); err != nil {
		t.Fatalf("SetRoomPattern: %v", err)
	}
	if e.Rooms()[0].FillPattern != "tiles.png" {
		t.Errorf("pattern = %q", e.Rooms()[0].FillPattern)
	}

	e.patterns.(*fakePatterns).fail["broken.png"] = true
	if err := e.SetRoomPattern(ctx, id, "broken.png", 1); err == nil {
		t.Error("broken pattern did not report an error")
	}
	room, _ := e.Object(id)
	if !room.Pattern.Flat {
		t.Error("broken pattern did not fall back to flat fill")
	}
	if err := e.SetRoomPattern(ctx, GridID, "x.png", 1); !errors.Is(err, ErrNotRoom) {
		t.Errorf("pattern on grid err = %v", err)
	}
}

func TestRoomPatternScaleClamped(t *testing.T) {
	ctx := context.Background()
	e, _ := newEditor(t)
	e.StartDrawWall(ctx)
	click(ctx, e, pt(0, 0), pt(200, 0), pt(200, 200), pt(0, 200), pt(0, 0))
	e.FinishDrawWall(ctx)
	id := e.Rooms()[0].ID

	tests := []struct {
		scale, want float64
	}{
		{1e5, models.MaxPatternScale},
		{0, e.Settings().PatternScale},
		{-2, e.Settings().PatternScale},
		{2, 2},
	}
	for _, tt := range tests {
		if err := e.SetRoomPattern(ctx, id, "tiles.png", tt.scale); err != nil {
			t.Fatalf("SetRoomPattern(%v): %v", tt.scale, err)
		}
		room, _ := e.Object(id)
		if room.Pattern.ScaleX != tt.want || room.Pattern.ScaleY != tt.want {
			t.Errorf("scale %v stored as %v", tt.scale, room.Pattern.ScaleX)
		}
	}
}

func TestRejectedStateKeepsScene(t *testing.T) {
	ctx := context.Background()
	e, _ := newEditor(t)
	e.StartDrawWall(ctx)
	click(ctx, e, pt(0, 0), pt(200, 0), pt(200, 200), pt(0, 200), pt(0, 0))
	click(ctx, e, pt(400, 0), pt(500, 0))
	e.FinishDrawWall(ctx)
	before, _ := e.Serialize()
	objects := len(e.Objects())
	unfinished := e.UnfinishedID()

	bad := `{"canvasState":{"objects":[{"id":"x","name":"furniture"},{"id":"x","name":"furniture"}]}}`
	if err := e.ApplyState(ctx, []byte(bad)); err == nil {
		t.Fatal("duplicate ids accepted")
	}
	if n := len(e.Objects()); n != objects {
		t.Errorf("objects = %d, want %d", n, objects)
	}
	if len(e.Rooms()) != 1 {
		t.Errorf("rooms = %d, want 1", len(e.Rooms()))
	}
	if e.UnfinishedID() != unfinished || e.Unfinished() == nil {
		t.Errorf("unfinished chain = %q, want %q", e.UnfinishedID(), unfinished)
	}
	if _, ok := e.Object(GridID); !ok {
		t.Error("grid lost")
	}
	after, _ := e.Serialize()
	if string(after) != string(before) {
		t.Error("rejected state changed the design")
	}
	if ok, err := e.Undo(ctx); !ok || err != nil {
		t.Errorf("history lost after rejected state: %v, %v", ok, err)
	}
}

func TestDeleteWallTrimsUnfinished(t *testing.T) {
	ctx := context.Background()
	e, _ := newEditor(t)
	e.StartDrawWall(ctx)
	click(ctx, e, pt(0, 0), pt(100, 0), pt(100, 100))
	e.FinishDrawWall(ctx)
	segs := e.Unfinished().SegmentIDs

	if err := e.DeleteObject(segs[1]); err != nil {
		t.Fatalf("DeleteObject: %v", err)
	}
	if u := e.Unfinished(); u == nil || len(u.SegmentIDs) != 1 {
		t.Errorf("unfinished after delete = %+v", u)
	}
	if ok, _ := e.Undo(ctx); !ok {
		t.Fatal("Undo failed")
	}
	if u := e.Unfinished(); u == nil || len(u.SegmentIDs) != 2 {
		t.Errorf("unfinished after undo = %+v", u)
	}
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	e, store := newEditor(t)
	e.StartDrawWall(ctx)
	click(ctx, e, pt(0, 0), pt(200, 0), pt(200, 200), pt(0, 200), pt(0, 0))
	click(ctx, e, pt(400, 0), pt(500, 0))
	e.FinishDrawWall(ctx)

	if err := e.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}
	want, _ := e.Serialize()

	other := New("design-1", DefaultSettings(), Deps{Store: store, Images: &fakePatterns{}})
	ok, err := other.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("Load = %v, %v", ok, err)
	}
	got, _ := other.Serialize()
	if string(got) != string(want) {
		t.Errorf("loaded state differs:\n%s\n%s", want, got)
	}
	if other.Unfinished() == nil || len(other.Rooms()) != 1 {
		t.Error("loaded editor lost walls or rooms")
	}
	if ok, _ := other.Undo(ctx); ok {
		t.Error("history before load is reachable")
	}

	empty := New("design-2", DefaultSettings(), Deps{Store: store})
	if ok, err := empty.Load(ctx); ok || err != nil {
		t.Errorf("Load of unknown design = %v, %v", ok, err)
	}
}

func TestSaveErrorKeptWithoutRollback(t *testing.T) {
	ctx := context.Background()
	e, store := newEditor(t)
	store.err = errors.New("disk full")
	_, _ = e.AddFurniture(FurnitureSpec{Width: 10, Height: 10})

	if err := e.Save(ctx); err == nil {
		t.Fatal("Save swallowed the store error")
	}
	if e.SaveError() == nil || e.State().SaveError == "" {
		t.Error("save error not kept")
	}
	if count(e, models.NameFurniture) != 1 {
		t.Error("failed save rolled back the scene")
	}

	store.err = nil
	if err := e.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if e.SaveError() != nil {
		t.Error("save error not cleared")
	}
}

func TestResizeUpdatesGrid(t *testing.T) {
	e, _ := newEditor(t)
	e.Resize(1000, 500)
	grid, ok := e.Object(GridID)
	if !ok {
		t.Fatal("grid missing")
	}
	if grid.Width != 4000 || grid.Height != 2000 {
		t.Errorf("grid size = %vx%v, want 4000x2000", grid.Width, grid.Height)
	}
	if !grid.TransformLocked() || grid.Selectable {
		t.Error("grid is not locked")
	}
}
