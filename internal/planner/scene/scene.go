// Package scene хранит объекты канвы и поддерживает инвариант порядка
// отрисовки: сетка, комнаты, стены, остальные объекты.
package scene

import (
	"errors"
	"fmt"

	"floorplan/internal/planner/models"
)

var (
	ErrNotFound  = errors.New("object not found")
	ErrDuplicate = errors.New("object already in scene")
)

// Слои отрисовки в фиксированном порядке.
const (
	layerGrid = iota
	layerRoom
	layerWall
	layerOther
)

func layerOf(obj *models.SceneObject) int {
	switch {
	case obj.Name == models.NameGrid:
		return layerGrid
	case obj.Name == models.NameRoom:
		return layerRoom
	case obj.IsWall():
		return layerWall
	default:
		return layerOther
	}
}

// ============================================================
// Scene
// ============================================================

type Scene struct {
	objects []*models.SceneObject
	index   map[string]*models.SceneObject
}

func New() *Scene {
	return &Scene{index: make(map[string]*models.SceneObject)}
}

// Add добавляет объект в конец списка. Порядок восстанавливает Reorder.
func (s *Scene) Add(obj *models.SceneObject) error {
	if obj == nil || obj.ID == "" {
		return fmt.Errorf("add object: empty id")
	}
	if _, ok := s.index[obj.ID]; ok {
		return fmt.Errorf("add %s: %w", obj.ID, ErrDuplicate)
	}
	s.objects = append(s.objects, obj)
	s.index[obj.ID] = obj
	return nil
}

// Remove удаляет объект по id.
func (s *Scene) Remove(id string) (*models.SceneObject, error) {
	obj, ok := s.index[id]
	if !ok {
		return nil, fmt.Errorf("remove %s: %w", id, ErrNotFound)
	}
	for i, o := range s.objects {
		if o == obj {
			s.objects = append(s.objects[:i], s.objects[i+1:]...)
			break
		}
	}
	delete(s.index, id)
	return obj, nil
}

// RemoveWhere удаляет все объекты, подходящие под условие, и возвращает их число.
func (s *Scene) RemoveWhere(match func(*models.SceneObject) bool) int {
	kept := s.objects[:0]
	removed := 0
	for _, o := range s.objects {
		if match(o) {
			delete(s.index, o.ID)
			removed++
			continue
		}
		kept = append(kept, o)
	}
	for i := len(kept); i < len(s.objects); i++ {
		s.objects[i] = nil
	}
	s.objects = kept
	return removed
}

// Get возвращает объект по id.
func (s *Scene) Get(id string) (*models.SceneObject, bool) {
	obj, ok := s.index[id]
	return obj, ok
}

// Objects возвращает копию списка в порядке отрисовки.
func (s *Scene) Objects() []*models.SceneObject {
	return append([]*models.SceneObject(nil), s.objects...)
}

// Len возвращает число объектов.
func (s *Scene) Len() int { return len(s.objects) }

// Replace заменяет содержимое сцены списком объектов.
// При ошибке сцена не меняется.
func (s *Scene) Replace(objects []*models.SceneObject) error {
	next := &Scene{index: make(map[string]*models.SceneObject, len(objects))}
	for _, o := range objects {
		if err := next.Add(o); err != nil {
			return fmt.Errorf("replace scene: %w", err)
		}
	}
	s.objects, s.index = next.objects, next.index
	return nil
}

// Clear удаляет все объекты.
func (s *Scene) Clear() {
	s.objects = nil
	s.index = make(map[string]*models.SceneObject)
}

// Grid возвращает объект сетки, если он есть.
func (s *Scene) Grid() *models.SceneObject {
	for _, o := range s.objects {
		if o.Name == models.NameGrid {
			return o
		}
	}
	return nil
}

// ============================================================
// Z-order
// ============================================================

// Reorder раскладывает объекты по слоям grid, rooms, walls, other,
// сохраняя относительный порядок внутри слоя.
func (s *Scene) Reorder() {
	var buckets [4][]*models.SceneObject
	for _, o := range s.objects {
		l := layerOf(o)
		buckets[l] = append(buckets[l], o)
	}
	ordered := make([]*models.SceneObject, 0, len(s.objects))
	for _, b := range buckets {
		ordered = append(ordered, b...)
	}
	s.objects = ordered
}

// BringForward поднимает выбранные объекты на одну позицию внутри слоя other.
// Фиксированные элементы игнорируются.
func (s *Scene) BringForward(ids ...string) {
	s.Reorder()
	selected := s.movable(ids)
	// идем сверху вниз, чтобы соседние выбранные объекты не менялись местами
	for i := len(s.objects) - 2; i >= 0; i-- {
		cur, next := s.objects[i], s.objects[i+1]
		if selected[cur.ID] && !selected[next.ID] && layerOf(next) == layerOther {
			s.objects[i], s.objects[i+1] = next, cur
		}
	}
}

// SendBackward опускает выбранные объекты на одну позицию внутри слоя other.
func (s *Scene) SendBackward(ids ...string) {
	s.Reorder()
	selected := s.movable(ids)
	for i := 1; i < len(s.objects); i++ {
		cur, prev := s.objects[i], s.objects[i-1]
		if selected[cur.ID] && !selected[prev.ID] && layerOf(prev) == layerOther {
			s.objects[i], s.objects[i-1] = prev, cur
		}
	}
}

func (s *Scene) movable(ids []string) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		obj, ok := s.index[id]
		if !ok || obj.IsFixed() {
			continue
		}
		out[id] = true
	}
	return out
}

// Ordered проверяет инвариант grid < rooms < walls < other.
func Ordered(objects []*models.SceneObject) bool {
	last := layerGrid
	for _, o := range objects {
		l := layerOf(o)
		if l < last {
			return false
		}
		last = l
	}
	return true
}
