// Package history хранит линейную историю снимков сцены с undo/redo.
package history

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"floorplan/internal/planner/models"
	"floorplan/internal/planner/plog"
)

const DefaultMaxLength = 50

// Source описывает редактор, чье состояние снимается и восстанавливается.
type Source interface {
	Objects() []*models.SceneObject
	UnfinishedID() string
	CompletedIDs() []string
	IsDrawing() bool
	Apply(objects []*models.SceneObject, unfinishedID string, completed []string) error
}

type Options struct {
	MaxLength int
	Images    ImageLoader
	Logger    *slog.Logger
}

// Manager хранит не более MaxLength сериализованных снимков и курсор.
type Manager struct {
	src    Source
	images ImageLoader
	max    int
	log    *slog.Logger

	entries [][]byte
	cursor  int
	busy    bool
}

func New(src Source, opts Options) *Manager {
	if opts.MaxLength <= 0 {
		opts.MaxLength = DefaultMaxLength
	}
	return &Manager{
		src:    src,
		images: opts.Images,
		max:    opts.MaxLength,
		log:    plog.OrNop(opts.Logger),
		cursor: -1,
	}
}

// Snapshot записывает текущее состояние. Ничего не делает во время
// восстановления, во время рисования и если состояние не изменилось.
func (m *Manager) Snapshot() bool {
	if m.busy || m.src.IsDrawing() {
		return false
	}
	snap := Capture(m.src.Objects(), m.src.UnfinishedID(), m.src.CompletedIDs())
	data, err := snap.Encode()
	if err != nil {
		m.log.Error("snapshot not recorded", "err", err)
		return false
	}
	if m.cursor >= 0 && bytes.Equal(m.entries[m.cursor], data) {
		return false
	}

	m.entries = append(m.entries[:m.cursor+1], data)
	if over := len(m.entries) - m.max; over > 0 {
		m.entries = append([][]byte(nil), m.entries[over:]...)
	}
	m.cursor = len(m.entries) - 1
	return true
}

// Undo восстанавливает предыдущий снимок.
func (m *Manager) Undo(ctx context.Context) (bool, error) {
	if m.busy || m.src.IsDrawing() || m.cursor <= 0 {
		return false, nil
	}
	if err := m.apply(ctx, m.entries[m.cursor-1]); err != nil {
		return false, fmt.Errorf("undo: %w", err)
	}
	m.cursor--
	return true, nil
}

// Redo восстанавливает следующий снимок.
func (m *Manager) Redo(ctx context.Context) (bool, error) {
	if m.busy || m.src.IsDrawing() || m.cursor >= len(m.entries)-1 {
		return false, nil
	}
	if err := m.apply(ctx, m.entries[m.cursor+1]); err != nil {
		return false, fmt.Errorf("redo: %w", err)
	}
	m.cursor++
	return true, nil
}

// Load применяет внешнее состояние (загрузка дизайна) и начинает
// историю с него.
func (m *Manager) Load(ctx context.Context, data []byte) error {
	if err := m.apply(ctx, data); err != nil {
		return fmt.Errorf("load: %w", err)
	}
	m.Reset()
	return nil
}

// Reset очищает историю и записывает текущее состояние как начальное.
func (m *Manager) Reset() {
	m.entries = nil
	m.cursor = -1
	m.Snapshot()
}

func (m *Manager) CanUndo() bool { return m.cursor > 0 }
func (m *Manager) CanRedo() bool { return m.cursor >= 0 && m.cursor < len(m.entries)-1 }
func (m *Manager) Len() int      { return len(m.entries) }
func (m *Manager) Cursor() int   { return m.cursor }

// Current возвращает текущий сериализованный снимок.
func (m *Manager) Current() []byte {
	if m.cursor < 0 {
		return nil
	}
	return m.entries[m.cursor]
}

func (m *Manager) apply(ctx context.Context, data []byte) error {
	snap, err := models.DecodeSnapshot(data)
	if err != nil {
		return err
	}

	m.busy = true
	defer func() { m.busy = false }()

	objects := Hydrate(ctx, snap, m.images, m.log)
	if err := m.src.Apply(objects, snap.UnfinishedID(), snap.CompletedWallIDs); err != nil {
		return fmt.Errorf("apply snapshot: %w", err)
	}
	return nil
}
