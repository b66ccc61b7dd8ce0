package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"floorplan/internal/planner/engine"
	"floorplan/internal/planner/repository"
	"floorplan/internal/planner/service"

	"github.com/gofiber/fiber/v3"
)

type memStore struct {
	mu     sync.Mutex
	states map[string]string
	names  map[string]string
}

func newMemStore() *memStore {
	return &memStore{states: map[string]string{}, names: map[string]string{}}
}

func (s *memStore) CreateDesign(_ context.Context, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[id] = ""
	s.names[id] = name
	return nil
}

func (s *memStore) SaveDesign(_ context.Context, id, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[id] = state
	return nil
}

func (s *memStore) LoadState(_ context.Context, id string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id]
	return st, ok, nil
}

func (s *memStore) ListDesigns(context.Context) ([]repository.Design, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []repository.Design{}
	for id, name := range s.names {
		out = append(out, repository.Design{ID: id, Name: name})
	}
	return out, nil
}

func (s *memStore) GetDesign(_ context.Context, id string) (*repository.Design, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name, ok := s.names[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &repository.Design{ID: id, Name: name}, nil
}

func (s *memStore) DeleteDesign(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.names[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.names, id)
	delete(s.states, id)
	return nil
}

type failingPinger struct{}

func (failingPinger) PingContext(context.Context) error { return errors.New("db down") }

func newApp(t *testing.T) (*fiber.App, *service.Manager) {
	t.Helper()
	store := newMemStore()
	sessions := service.NewManager(engine.DefaultSettings(), store, nil, nil)
	app := fiber.New()
	NewPlannerHandler(sessions, store).Register(app)
	NewHealth(nil).Register(app)
	return app, sessions
}

func call(t *testing.T, app *fiber.App, method, path string, body any) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out
}

func createDesign(t *testing.T, app *fiber.App) string {
	t.Helper()
	code, body := call(t, app, http.MethodPost, "/designs", map[string]string{"name": "flat"})
	if code != http.StatusCreated {
		t.Fatalf("create = %d %s", code, body)
	}
	var st engine.State
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatal(err)
	}
	return st.DesignID
}

func drawRoom(t *testing.T, app *fiber.App, id string) {
	t.Helper()
	call(t, app, http.MethodPost, "/designs/"+id+"/draw/start", nil)
	for _, p := range [][2]float64{{0, 0}, {200, 0}, {200, 200}, {0, 200}, {0, 0}} {
		code, body := call(t, app, http.MethodPost, "/designs/"+id+"/pointer/down", engine.Pointer{X: p[0], Y: p[1]})
		if code != http.StatusOK {
			t.Fatalf("pointer down = %d %s", code, body)
		}
	}
}

func TestDrawRoomOverHTTP(t *testing.T) {
	app, _ := newApp(t)
	id := createDesign(t, app)
	drawRoom(t, app, id)

	code, body := call(t, app, http.MethodGet, "/designs/"+id+"/rooms", nil)
	if code != http.StatusOK {
		t.Fatalf("rooms = %d", code)
	}
	var rooms []roomPayload
	if err := json.Unmarshal(body, &rooms); err != nil {
		t.Fatal(err)
	}
	if len(rooms) != 1 || len(rooms[0].Points) != 4 {
		t.Fatalf("rooms = %+v", rooms)
	}
	// внутренний контур 180x180 при толщине стены 20
	if rooms[0].Area < 180*180-1 || rooms[0].Area > 180*180+1 {
		t.Errorf("area = %v", rooms[0].Area)
	}

	code, body = call(t, app, http.MethodPost, "/designs/"+id+"/undo", nil)
	var st engine.State
	_ = json.Unmarshal(body, &st)
	if code != http.StatusOK || st.Rooms != 0 || !st.CanRedo {
		t.Errorf("undo = %d %+v", code, st)
	}
	call(t, app, http.MethodPost, "/designs/"+id+"/redo", nil)
	_, body = call(t, app, http.MethodGet, "/designs/"+id+"/state", nil)
	_ = json.Unmarshal(body, &st)
	if st.Rooms != 1 {
		t.Errorf("redo state = %+v", st)
	}
}

func TestFinishDrawOpenChain(t *testing.T) {
	app, _ := newApp(t)
	id := createDesign(t, app)
	call(t, app, http.MethodPost, "/designs/"+id+"/mode", map[string]string{"mode": "draw"})
	call(t, app, http.MethodPost, "/designs/"+id+"/pointer/down", engine.Pointer{X: 0, Y: 0})
	call(t, app, http.MethodPost, "/designs/"+id+"/pointer/move", engine.Pointer{X: 150, Y: 0})
	call(t, app, http.MethodPost, "/designs/"+id+"/pointer/down", engine.Pointer{X: 200, Y: 0})

	code, body := call(t, app, http.MethodPost, "/designs/"+id+"/draw/finish", nil)
	if code != http.StatusOK {
		t.Fatalf("finish = %d %s", code, body)
	}
	var resp struct {
		Closed       bool         `json:"closed"`
		UnfinishedID string       `json:"unfinishedWallId"`
		State        engine.State `json:"state"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Closed || resp.UnfinishedID == "" || resp.State.Mode != "select" {
		t.Errorf("finish response = %+v", resp)
	}
}

func TestKeyAndViewport(t *testing.T) {
	app, _ := newApp(t)
	id := createDesign(t, app)

	code, body := call(t, app, http.MethodPost, "/designs/"+id+"/key", engine.Key{Key: "w"})
	var kr struct {
		Handled bool         `json:"handled"`
		State   engine.State `json:"state"`
	}
	_ = json.Unmarshal(body, &kr)
	if code != http.StatusOK || !kr.Handled || kr.State.Mode != "draw" {
		t.Errorf("key w = %d %+v", code, kr)
	}

	_, body = call(t, app, http.MethodPost, "/designs/"+id+"/zoom", map[string]float64{"factor": 2, "x": 100, "y": 100})
	var st engine.State
	_ = json.Unmarshal(body, &st)
	if st.Viewport.Zoom != 2 {
		t.Errorf("zoom = %v", st.Viewport.Zoom)
	}
	_, body = call(t, app, http.MethodPost, "/designs/"+id+"/pan", map[string]float64{"dx": 10, "dy": -5})
	_ = json.Unmarshal(body, &st)
	if st.Viewport.Offset.X != -90 || st.Viewport.Offset.Y != -105 {
		t.Errorf("offset = %+v", st.Viewport.Offset)
	}

	code, _ = call(t, app, http.MethodPost, "/designs/"+id+"/resize", map[string]float64{"width": 800, "height": 600})
	if code != http.StatusAccepted {
		t.Errorf("resize = %d", code)
	}
}

func TestObjectsAPI(t *testing.T) {
	app, _ := newApp(t)
	id := createDesign(t, app)

	code, body := call(t, app, http.MethodPost, "/designs/"+id+"/objects", engine.FurnitureSpec{Left: 10, Top: 10, Width: 50, Height: 30})
	if code != http.StatusCreated {
		t.Fatalf("add = %d %s", code, body)
	}
	var obj struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &obj)

	code, _ = call(t, app, http.MethodPost, "/designs/"+id+"/objects", engine.FurnitureSpec{Width: 0, Height: 30})
	if code != http.StatusUnprocessableEntity {
		t.Errorf("add invalid = %d", code)
	}

	left := 40.0
	code, _ = call(t, app, http.MethodPatch, "/designs/"+id+"/objects/"+obj.ID, engine.Transform{Left: &left})
	if code != http.StatusOK {
		t.Errorf("transform = %d", code)
	}
	code, _ = call(t, app, http.MethodPatch, "/designs/"+id+"/objects/"+engine.GridID, engine.Transform{Left: &left})
	if code != http.StatusConflict {
		t.Errorf("transform grid = %d", code)
	}
	code, _ = call(t, app, http.MethodPost, "/designs/"+id+"/objects/"+obj.ID+"/forward", nil)
	if code != http.StatusOK {
		t.Errorf("forward = %d", code)
	}
	code, _ = call(t, app, http.MethodPost, "/designs/"+id+"/objects/missing/backward", nil)
	if code != http.StatusNotFound {
		t.Errorf("backward missing = %d", code)
	}
	code, _ = call(t, app, http.MethodPut, "/designs/"+id+"/rooms/"+obj.ID+"/pattern", map[string]string{"url": "x.png"})
	if code != http.StatusUnprocessableEntity {
		t.Errorf("pattern on furniture = %d", code)
	}
	code, _ = call(t, app, http.MethodDelete, "/designs/"+id+"/objects/"+obj.ID, nil)
	if code != http.StatusOK {
		t.Errorf("delete = %d", code)
	}
	code, _ = call(t, app, http.MethodDelete, "/designs/"+id+"/objects/"+engine.GridID, nil)
	if code != http.StatusConflict {
		t.Errorf("delete grid = %d", code)
	}
}

func TestRoomPattern(t *testing.T) {
	app, _ := newApp(t)
	id := createDesign(t, app)
	drawRoom(t, app, id)

	_, body := call(t, app, http.MethodGet, "/designs/"+id+"/rooms", nil)
	var rooms []roomPayload
	_ = json.Unmarshal(body, &rooms)

	code, _ := call(t, app, http.MethodPut, "/designs/"+id+"/rooms/"+rooms[0].ID+"/pattern", map[string]any{"url": "tiles.png", "scale": 1})
	if code != http.StatusOK {
		t.Fatalf("pattern = %d", code)
	}
	_, body = call(t, app, http.MethodGet, "/designs/"+id+"/rooms", nil)
	_ = json.Unmarshal(body, &rooms)
	if rooms[0].FillPattern != "tiles.png" {
		t.Errorf("fill = %q", rooms[0].FillPattern)
	}
}

func TestSaveExportImport(t *testing.T) {
	app, sessions := newApp(t)
	id := createDesign(t, app)
	drawRoom(t, app, id)

	if code, body := call(t, app, http.MethodPost, "/designs/"+id+"/save", nil); code != http.StatusOK {
		t.Fatalf("save = %d %s", code, body)
	}
	code, exported := call(t, app, http.MethodGet, "/designs/"+id+"/export", nil)
	if code != http.StatusOK || !bytes.Contains(exported, []byte(`"canvasState"`)) {
		t.Fatalf("export = %d %s", code, exported)
	}

	if code, _ := call(t, app, http.MethodDelete, "/designs/"+id, nil); code != http.StatusNoContent {
		t.Errorf("close = %d", code)
	}
	if _, ok := sessions.Get(id); ok {
		t.Fatal("session still open")
	}
	_, body := call(t, app, http.MethodGet, "/designs/"+id, nil)
	var st engine.State
	_ = json.Unmarshal(body, &st)
	if st.Rooms != 1 || st.CanUndo {
		t.Errorf("reopened state = %+v", st)
	}

	other := createDesign(t, app)
	req := httptest.NewRequest(http.MethodPut, "/designs/"+other+"/import", bytes.NewReader(exported))
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("import = %d", resp.StatusCode)
	}
	_, body = call(t, app, http.MethodGet, "/designs/"+other+"/state", nil)
	_ = json.Unmarshal(body, &st)
	if st.Rooms != 1 {
		t.Errorf("imported rooms = %d", st.Rooms)
	}

	req = httptest.NewRequest(http.MethodPut, "/designs/"+other+"/import", bytes.NewReader([]byte("{broken")))
	resp, _ = app.Test(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("broken import = %d", resp.StatusCode)
	}

	dup := `{"canvasState":{"objects":[{"id":"x","name":"furniture"},{"id":"x","name":"furniture"}]}}`
	req = httptest.NewRequest(http.MethodPut, "/designs/"+other+"/import", bytes.NewReader([]byte(dup)))
	resp, _ = app.Test(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("duplicate ids import = %d", resp.StatusCode)
	}
	_, body = call(t, app, http.MethodGet, "/designs/"+other+"/state", nil)
	_ = json.Unmarshal(body, &st)
	if st.Rooms != 1 {
		t.Errorf("rooms after rejected import = %d", st.Rooms)
	}

	_, body = call(t, app, http.MethodGet, "/designs", nil)
	var list []repository.Design
	_ = json.Unmarshal(body, &list)
	if len(list) != 2 {
		t.Errorf("designs = %d", len(list))
	}
}

func TestPreview(t *testing.T) {
	app, _ := newApp(t)
	id := createDesign(t, app)

	code, _ := call(t, app, http.MethodGet, "/designs/"+id+"/preview.svg", nil)
	if code != http.StatusUnprocessableEntity {
		t.Errorf("empty svg = %d", code)
	}
	drawRoom(t, app, id)

	code, body := call(t, app, http.MethodGet, "/designs/"+id+"/preview.svg", nil)
	if code != http.StatusOK || !bytes.Contains(body, []byte("<svg")) {
		t.Errorf("svg = %d", code)
	}
	code, body = call(t, app, http.MethodGet, "/designs/"+id+"/preview.png?w=64&h=48", nil)
	if code != http.StatusOK || !bytes.HasPrefix(body, []byte("\x89PNG")) {
		t.Errorf("png = %d", code)
	}
}

func TestErrors(t *testing.T) {
	app, _ := newApp(t)

	if code, _ := call(t, app, http.MethodGet, "/designs/unknown/state", nil); code != http.StatusNotFound {
		t.Errorf("unknown design = %d", code)
	}
	id := createDesign(t, app)
	req := httptest.NewRequest(http.MethodPost, "/designs/"+id+"/pointer/down", bytes.NewReader([]byte("nope")))
	resp, _ := app.Test(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad json = %d", resp.StatusCode)
	}
	if code, _ := call(t, app, http.MethodPost, "/designs/"+id+"/zoom", nil); code != http.StatusBadRequest {
		t.Errorf("empty body = %d", code)
	}
}

func TestHealth(t *testing.T) {
	app, _ := newApp(t)
	if code, _ := call(t, app, http.MethodGet, "/health/live", nil); code != http.StatusOK {
		t.Errorf("live = %d", code)
	}
	if code, _ := call(t, app, http.MethodGet, "/health/ready", nil); code != http.StatusOK {
		t.Errorf("ready = %d", code)
	}

	down := fiber.New()
	NewHealth(failingPinger{}).Register(down)
	if code, _ := call(t, down, http.MethodGet, "/health/ready", nil); code != http.StatusServiceUnavailable {
		t.Errorf("ready with db down = %d", code)
	}
}

func TestDesignInfoAndPurge(t *testing.T) {
	app, sessions := newApp(t)
	code, body := call(t, app, http.MethodPost, "/designs", map[string]string{"name": "Kitchen"})
	if code != http.StatusCreated {
		t.Fatalf("create = %d %s", code, body)
	}
	var st engine.State
	_ = json.Unmarshal(body, &st)
	id := st.DesignID

	code, body = call(t, app, http.MethodGet, "/designs/"+id+"/info", nil)
	var d repository.Design
	_ = json.Unmarshal(body, &d)
	if code != http.StatusOK || d.ID != id || d.Name != "Kitchen" {
		t.Errorf("info = %d %+v", code, d)
	}
	if code, _ := call(t, app, http.MethodGet, "/designs/missing/info", nil); code != http.StatusNotFound {
		t.Errorf("missing info = %d", code)
	}

	if code, _ := call(t, app, http.MethodDelete, "/designs/"+id+"?purge=true", nil); code != http.StatusNoContent {
		t.Fatalf("purge = %d", code)
	}
	if _, ok := sessions.Get(id); ok {
		t.Error("session survived purge")
	}
	if code, _ := call(t, app, http.MethodGet, "/designs/"+id, nil); code != http.StatusNotFound {
		t.Errorf("open after purge = %d", code)
	}
	if code, _ := call(t, app, http.MethodDelete, "/designs/"+id+"?purge=true", nil); code != http.StatusNotFound {
		t.Errorf("second purge = %d", code)
	}
}
