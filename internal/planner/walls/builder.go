// Package walls строит толстые стены из однолинейного пути: экструзия,
// углы, продолжение незаконченной цепочки и замыкание контура в комнату.
package walls

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"floorplan/internal/planner/geometry"
	"floorplan/internal/planner/models"
	"floorplan/internal/planner/pathdata"
	"floorplan/internal/planner/plog"
	"floorplan/internal/planner/rooms"
)

var (
	ErrBusy    = errors.New("wall drawing in progress")
	ErrNotWall = errors.New("object is not a wall")
)

// ID временных объектов.
const (
	PreviewID       = "wall-preview"
	EndpointStartID = "wall-endpoint-start"
	EndpointEndID   = "wall-endpoint-end"
)

// Canvas описывает то, чем билдер пользуется на сцене.
type Canvas interface {
	Add(obj *models.SceneObject) error
	Remove(id string) (*models.SceneObject, error)
	Get(id string) (*models.SceneObject, bool)
	Objects() []*models.SceneObject
	RemoveWhere(match func(*models.SceneObject) bool) int
}

type Snapper interface {
	SnapToGrid(p models.Point) models.Point
}

type RoomSynthesizer interface {
	Synthesize(path []models.Point, walls []*models.WallSegment) (*models.SceneObject, error)
}

type State int

const (
	Idle State = iota
	Drawing
)

func (s State) String() string {
	if s == Drawing {
		return "drawing"
	}
	return "idle"
}

// PlaceResult описывает, что сделал PlacePoint.
type PlaceResult int

const (
	PlaceIgnored PlaceResult = iota
	PlaceStarted
	PlaceResumed
	PlaceExtended
	PlaceClosed
)

func (r PlaceResult) String() string {
	switch r {
	case PlaceStarted:
		return "started"
	case PlaceResumed:
		return "resumed"
	case PlaceExtended:
		return "extended"
	case PlaceClosed:
		return "closed"
	default:
		return "ignored"
	}
}

type FinishResult struct {
	Room         *models.SceneObject
	Closed       bool
	UnfinishedID string
}

type Options struct {
	Thickness     float64
	SnapThreshold float64
	MiterLimit    float64
	Styles        models.Styles
	NewID         func() string
	Logger        *slog.Logger

	// Commit вызывается после каждого структурного изменения:
	// редактор пересобирает z-порядок и просит снимок истории.
	Commit func()
}

// ============================================================
// Builder
// ============================================================

type Builder struct {
	canvas Canvas
	snap   Snapper
	rooms  RoomSynthesizer
	opts   Options
	log    *slog.Logger

	state   State
	path    []models.Point
	segs    []*models.WallSegment
	chainID string
	resumed bool

	unfinished *models.Chain
	completed  []string
	last       FinishResult
}

func NewBuilder(canvas Canvas, snap Snapper, synth RoomSynthesizer, opts Options) *Builder {
	if opts.Thickness <= 0 {
		opts.Thickness = 20
	}
	if opts.SnapThreshold <= 0 {
		opts.SnapThreshold = 15
	}
	if opts.MiterLimit <= 0 {
		opts.MiterLimit = 4
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Commit == nil {
		opts.Commit = func() {}
	}
	return &Builder{
		canvas: canvas,
		snap:   snap,
		rooms:  synth,
		opts:   opts,
		log:    plog.OrNop(opts.Logger),
	}
}

// Start переводит билдер в Drawing. Концы незаконченной цепочки
// показываются как цели привязки.
func (b *Builder) Start() {
	if b.state == Drawing {
		return
	}
	b.state = Drawing
	b.resetPath()
	b.showEndpoints()
	b.log.Debug("wall drawing started", "unfinished", b.UnfinishedID())
}

// PlacePoint привязывает точку к сетке и добавляет ее в путь.
func (b *Builder) PlacePoint(raw models.Point) PlaceResult {
	if b.state != Drawing {
		return PlaceIgnored
	}
	p := b.snap.SnapToGrid(raw)

	if len(b.path) == 0 {
		if b.resume(p) {
			b.log.Debug("unfinished chain resumed", "chain", b.chainID, "points", len(b.path))
			return PlaceResumed
		}
		b.path = append(b.path, p)
		b.chainID = b.opts.NewID()
		return PlaceStarted
	}

	last := b.path[len(b.path)-1]
	closing := len(b.path) >= 3 && geometry.Distance(p, b.path[0]) < b.opts.SnapThreshold
	if closing {
		p = b.path[0]
	}
	if geometry.AlmostEqual(p, last) {
		return PlaceIgnored
	}

	if b.addSegment(last, p) == nil {
		return PlaceIgnored
	}
	b.path = append(b.path, p)

	if closing {
		b.Finish()
		return PlaceClosed
	}
	b.opts.Commit()
	return PlaceExtended
}

// UpdatePreview рисует временный сегмент от последней точки до курсора.
func (b *Builder) UpdatePreview(raw models.Point) *models.SceneObject {
	if b.state != Drawing || len(b.path) == 0 {
		return nil
	}
	seg := &models.WallSegment{
		ID:        PreviewID,
		Start:     b.path[len(b.path)-1],
		End:       b.snap.SnapToGrid(raw),
		Thickness: b.opts.Thickness,
	}
	if !Extrude(seg) {
		b.canvas.RemoveWhere(func(o *models.SceneObject) bool { return o.ID == PreviewID })
		return nil
	}
	obj := &models.SceneObject{
		ID:        PreviewID,
		Name:      models.NameWallPreview,
		Type:      models.TypePath,
		ScaleX:    1,
		ScaleY:    1,
		Wall:      seg,
		Transient: true,
	}
	b.opts.Styles.Preview.Apply(obj)
	syncWall(obj)
	return b.upsert(obj)
}

// Finish завершает жест. Замкнутый контур превращается в комнату,
// открытый путь становится незаконченной цепочкой.
func (b *Builder) Finish() FinishResult {
	if b.state != Drawing {
		return FinishResult{UnfinishedID: b.UnfinishedID()}
	}
	b.state = Idle
	b.clearTransient()

	var res FinishResult
	switch {
	case len(b.segs) >= 3 && rooms.IsClosed(b.path, b.opts.SnapThreshold):
		room, err := b.closeLoop()
		if err != nil {
			b.log.Warn("room not synthesized", "chain", b.chainID, "err", err)
			b.keepOpen()
			break
		}
		res.Room, res.Closed = room, true
		b.log.Info("room created", "room", room.ID, "walls", len(b.segs))
	case len(b.segs) > 0:
		b.keepOpen()
	}

	b.resetPath()
	res.UnfinishedID = b.UnfinishedID()
	b.last = res
	b.opts.Commit()
	return res
}

// LastFinish возвращает результат последнего завершенного жеста.
func (b *Builder) LastFinish() FinishResult { return b.last }

// RemoveWall удаляет сегмент стены. Соседи получают прямые торцы,
// незаконченная цепочка обрезается или делится.
func (b *Builder) RemoveWall(id string) error {
	if b.state == Drawing {
		return fmt.Errorf("remove wall %s: %w", id, ErrBusy)
	}
	if obj, ok := b.canvas.Get(id); ok && !obj.IsWall() {
		return fmt.Errorf("remove wall %s: %w", id, ErrNotWall)
	}
	removed, err := b.canvas.Remove(id)
	if err != nil {
		return fmt.Errorf("remove wall: %w", err)
	}

	b.completed = without(b.completed, id)
	if removed.Wall != nil {
		b.detachNeighbours(removed.Wall)
	}
	if b.unfinished != nil && indexOf(b.unfinished.SegmentIDs, id) >= 0 {
		b.splitUnfinished(id)
	}
	b.opts.Commit()
	return nil
}

// Restore восстанавливает состояние билдера по объектам сцены
// после отката истории или загрузки.
func (b *Builder) Restore(unfinishedID string, completed []string) {
	b.state = Idle
	b.resetPath()
	for _, o := range b.canvas.Objects() {
		if !o.IsWall() || o.Wall != nil || o.Path == "" {
			continue
		}
		seg, err := wallFromPath(o)
		if err != nil {
			b.log.Warn("wall geometry not restored", "id", o.ID, "err", err)
			continue
		}
		o.Wall = seg
		syncWall(o)
	}
	b.unfinished = nil
	if unfinishedID != "" {
		b.unfinished = b.RebuildChain(unfinishedID)
	}
	b.completed = b.completed[:0]
	for _, id := range completed {
		if _, ok := b.canvas.Get(id); ok {
			b.completed = append(b.completed, id)
		}
	}
}

// RebuildChain собирает цепочку из сегментов wallGroup с данным chainId.
func (b *Builder) RebuildChain(chainID string) *models.Chain {
	var segs []*models.WallSegment
	for _, o := range b.canvas.Objects() {
		if o.Name == models.NameWallGroup && o.Wall != nil && o.Wall.ChainID == chainID {
			segs = append(segs, o.Wall)
		}
	}
	if len(segs) == 0 {
		return nil
	}
	sort.SliceStable(segs, func(i, j int) bool { return segs[i].Index < segs[j].Index })

	c := &models.Chain{ID: chainID, Points: []models.Point{segs[0].Start}}
	for _, s := range segs {
		c.Points = append(c.Points, s.End)
		c.SegmentIDs = append(c.SegmentIDs, s.ID)
	}
	return c
}

func (b *Builder) State() State    { return b.state }
func (b *Builder) IsDrawing() bool { return b.state == Drawing }

// Path возвращает копию текущего пути.
func (b *Builder) Path() []models.Point {
	return append([]models.Point(nil), b.path...)
}

// Unfinished возвращает копию незаконченной цепочки или nil.
func (b *Builder) Unfinished() *models.Chain { return b.unfinished.Clone() }

func (b *Builder) UnfinishedID() string {
	if b.unfinished == nil {
		return ""
	}
	return b.unfinished.ID
}

// CompletedIDs возвращает id завершенных стен.
func (b *Builder) CompletedIDs() []string {
	return append([]string(nil), b.completed...)
}

// ============================================================
// internals
// ============================================================

func (b *Builder) resetPath() {
	b.path = nil
	b.segs = nil
	b.chainID = ""
	b.resumed = false
}

// resume подхватывает незаконченную цепочку, если p попал в один из ее концов.
func (b *Builder) resume(p models.Point) bool {
	c := b.unfinished
	if c == nil || len(c.Points) < 2 {
		return false
	}
	segs, ok := b.chainSegments(c)
	if !ok {
		return false
	}

	switch {
	case geometry.Distance(p, c.Points[len(c.Points)-1]) < b.opts.SnapThreshold:
	case geometry.Distance(p, c.Points[0]) < b.opts.SnapThreshold:
		segs = b.reverseChain(c, segs)
	default:
		return false
	}

	b.path = append([]models.Point(nil), c.Points...)
	b.segs = segs
	b.chainID = c.ID
	b.resumed = true
	return true
}

func (b *Builder) chainSegments(c *models.Chain) ([]*models.WallSegment, bool) {
	segs := make([]*models.WallSegment, 0, len(c.SegmentIDs))
	for _, id := range c.SegmentIDs {
		obj, ok := b.canvas.Get(id)
		if !ok || obj.Wall == nil {
			b.log.Warn("unfinished chain lost a segment", "chain", c.ID, "wall", id)
			return nil, false
		}
		segs = append(segs, obj.Wall)
	}
	return segs, true
}

// reverseChain разворачивает цепочку, чтобы продолжать ее с начала.
func (b *Builder) reverseChain(c *models.Chain, segs []*models.WallSegment) []*models.WallSegment {
	n := len(segs)
	out := make([]*models.WallSegment, n)
	ids := make([]string, n)
	for i, s := range segs {
		Reverse(s)
		out[n-1-i] = s
		ids[n-1-i] = s.ID
	}
	for i, s := range out {
		s.Index = i
		b.refresh(s)
	}
	c.Points = geometry.Reverse(c.Points)
	c.SegmentIDs = ids
	return out
}

func (b *Builder) addSegment(from, to models.Point) *models.WallSegment {
	seg := &models.WallSegment{
		ID:        b.opts.NewID(),
		ChainID:   b.chainID,
		Index:     len(b.segs),
		Start:     from,
		End:       to,
		Thickness: b.opts.Thickness,
	}
	if !Extrude(seg) {
		return nil
	}
	if n := len(b.segs); n > 0 {
		prev := b.segs[n-1]
		if kind := Join(prev, seg, b.opts.MiterLimit); kind == JoinButt {
			b.log.Debug("corner fell back to butt join", "wall", prev.ID)
		}
		b.refresh(prev)
	}

	obj := &models.SceneObject{
		ID:     seg.ID,
		Name:   models.NameWallGroup,
		Type:   models.TypePath,
		ScaleX: 1,
		ScaleY: 1,
		Wall:   seg,
	}
	b.opts.Styles.Wall.Apply(obj)
	syncWall(obj)
	if err := b.canvas.Add(obj); err != nil {
		b.log.Warn("wall not added", "wall", seg.ID, "err", err)
		return nil
	}
	b.segs = append(b.segs, seg)
	return seg
}

// closeLoop замыкает угол между последним и первым сегментом,
// разворачивает стороны внутрь комнаты и синтезирует комнату.
func (b *Builder) closeLoop() (*models.SceneObject, error) {
	first, last := b.segs[0], b.segs[len(b.segs)-1]
	Join(last, first, b.opts.MiterLimit)

	swapped := geometry.SignedArea(rooms.Vertices(b.path, b.opts.SnapThreshold)) < 0
	if swapped {
		for _, s := range b.segs {
			SwapSides(s)
		}
	}

	room, err := b.rooms.Synthesize(b.path, b.segs)
	if err != nil {
		if swapped {
			for _, s := range b.segs {
				SwapSides(s)
			}
		}
		ButtEnd(last)
		ButtStart(first)
		b.refresh(last)
		b.refresh(first)
		return nil, err
	}

	for _, s := range b.segs {
		b.refresh(s)
		b.freeze(s.ID)
	}
	if b.resumed {
		b.unfinished = nil
	}
	return room, nil
}

// keepOpen сохраняет путь как незаконченную цепочку. Предыдущая
// цепочка, если ее не продолжали, замораживается.
func (b *Builder) keepOpen() {
	if len(b.segs) == 0 {
		return
	}
	if !b.resumed && b.unfinished != nil {
		for _, id := range b.unfinished.SegmentIDs {
			b.freeze(id)
		}
	}
	c := &models.Chain{ID: b.chainID, Points: append([]models.Point(nil), b.path...)}
	for _, s := range b.segs {
		c.SegmentIDs = append(c.SegmentIDs, s.ID)
	}
	b.unfinished = c
}

func (b *Builder) freeze(id string) {
	obj, ok := b.canvas.Get(id)
	if !ok {
		return
	}
	obj.Name = models.NameFinishedWall
	if indexOf(b.completed, id) < 0 {
		b.completed = append(b.completed, id)
	}
}

// detachNeighbours ставит прямые торцы сегментам, примыкавшим к удаленному.
func (b *Builder) detachNeighbours(seg *models.WallSegment) {
	for _, o := range b.canvas.Objects() {
		w := o.Wall
		if !o.IsWall() || w == nil || w.ChainID != seg.ChainID {
			continue
		}
		changed := false
		if geometry.AlmostEqual(w.End, seg.Start) {
			ButtEnd(w)
			changed = true
		}
		if geometry.AlmostEqual(w.Start, seg.End) {
			ButtStart(w)
			changed = true
		}
		if changed {
			syncWall(o)
		}
	}
}

// splitUnfinished вырезает сегмент из незаконченной цепочки. Часть до
// него остается незаконченной, часть после замораживается; если части
// до нет, незаконченной становится часть после.
func (b *Builder) splitUnfinished(id string) {
	c := b.unfinished
	k := indexOf(c.SegmentIDs, id)
	head := append([]string(nil), c.SegmentIDs[:k]...)
	tail := append([]string(nil), c.SegmentIDs[k+1:]...)

	switch {
	case len(head) > 0:
		for _, tid := range tail {
			b.freeze(tid)
		}
		b.unfinished = &models.Chain{ID: c.ID, Points: append([]models.Point(nil), c.Points[:k+1]...), SegmentIDs: head}
	case len(tail) > 0:
		for i, tid := range tail {
			if obj, ok := b.canvas.Get(tid); ok && obj.Wall != nil {
				obj.Wall.Index = i
			}
		}
		b.unfinished = &models.Chain{ID: c.ID, Points: append([]models.Point(nil), c.Points[k+1:]...), SegmentIDs: tail}
	default:
		b.unfinished = nil
	}
}

func (b *Builder) showEndpoints() {
	c := b.unfinished
	if c == nil || len(c.Points) < 2 {
		return
	}
	b.upsert(b.endpoint(EndpointStartID, c.Points[0]))
	b.upsert(b.endpoint(EndpointEndID, c.Points[len(c.Points)-1]))
}

func (b *Builder) endpoint(id string, p models.Point) *models.SceneObject {
	r := b.opts.SnapThreshold
	obj := &models.SceneObject{
		ID:        id,
		Name:      models.NameWallEndpoint,
		Type:      models.TypeCircle,
		Left:      p.X - r,
		Top:       p.Y - r,
		Width:     2 * r,
		Height:    2 * r,
		ScaleX:    1,
		ScaleY:    1,
		Points:    []models.Point{p},
		Transient: true,
	}
	b.opts.Styles.Endpoint.Apply(obj)
	return obj
}

func (b *Builder) clearTransient() {
	b.canvas.RemoveWhere(func(o *models.SceneObject) bool {
		return o.Transient || o.Name == models.NameWallPreview || o.Name == models.NameWallEndpoint
	})
}

func (b *Builder) upsert(obj *models.SceneObject) *models.SceneObject {
	if existing, ok := b.canvas.Get(obj.ID); ok {
		*existing = *obj
		return existing
	}
	if err := b.canvas.Add(obj); err != nil {
		b.log.Warn("transient object not added", "id", obj.ID, "err", err)
		return nil
	}
	return obj
}

func (b *Builder) refresh(seg *models.WallSegment) {
	if obj, ok := b.canvas.Get(seg.ID); ok {
		obj.Wall = seg
		syncWall(obj)
	}
}

// syncWall обновляет path, точки и габариты объекта по его сегменту.
func syncWall(obj *models.SceneObject) {
	seg := obj.Wall
	outline := seg.Outline()
	obj.Path = pathdata.Format(outline, true)
	obj.Points = []models.Point{seg.Start, seg.End}
	rooms.SetBounds(obj, outline)
}

// wallFromPath восстанавливает сегмент стены по контуру path. Контур идет
// в порядке Outline, без привязки к цепочке.
func wallFromPath(obj *models.SceneObject) (*models.WallSegment, error) {
	points, _, err := pathdata.Parse(obj.Path)
	if err != nil {
		return nil, fmt.Errorf("wall %s: %w", obj.ID, err)
	}
	if n := len(points); n == 5 && geometry.AlmostEqual(points[0], points[4]) {
		points = points[:4]
	}
	if len(points) != 4 {
		return nil, fmt.Errorf("wall %s: outline has %d points, want 4", obj.ID, len(points))
	}
	seg := &models.WallSegment{
		ID:         obj.ID,
		InnerStart: points[0],
		InnerEnd:   points[1],
		OuterEnd:   points[2],
		OuterStart: points[3],
		Thickness:  geometry.Distance(points[0], points[3]),
	}
	seg.Start = midpoint(seg.InnerStart, seg.OuterStart)
	seg.End = midpoint(seg.InnerEnd, seg.OuterEnd)
	return seg, nil
}

func midpoint(a, b models.Point) models.Point {
	return models.Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
