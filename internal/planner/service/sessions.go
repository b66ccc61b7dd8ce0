package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"floorplan/internal/planner/engine"
	"floorplan/internal/planner/viewport"
)

var ErrSessionNotFound = errors.New("design not found")

// Store хранит дизайны.
type Store interface {
	engine.Store
	CreateDesign(ctx context.Context, id, name string) error
}

// Assets загружает текстуры для комнат и для восстановления истории.
type Assets interface {
	engine.PatternApplier
	engine.ImageLoader
}

// ============================================================
// Session
// ============================================================

// Session держит открытый редактор одного дизайна. Все обращения к редактору
// идут через Do под мьютексом сессии.
type Session struct {
	ID string

	mu     sync.Mutex
	editor *engine.Editor
	resize *viewport.Debouncer
	notify func(id string, st engine.State)
}

// Do выполняет fn под блокировкой и рассылает новое состояние.
func (s *Session) Do(fn func(e *engine.Editor) error) error {
	s.mu.Lock()
	err := fn(s.editor)
	st := s.editor.State()
	s.mu.Unlock()

	if s.notify != nil {
		s.notify(s.ID, st)
	}
	return err
}

// View выполняет fn под блокировкой без рассылки.
func (s *Session) View(fn func(e *engine.Editor) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.editor)
}

// Resize откладывает пересчет сетки до окончания серии изменений размера.
func (s *Session) Resize(width, height float64) {
	s.resize.Trigger(func() {
		_ = s.Do(func(e *engine.Editor) error {
			e.Resize(width, height)
			return nil
		})
	})
}

// ============================================================
// Session Manager
// ============================================================

type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	settings engine.Settings
	store    Store
	assets   Assets
	logger   *slog.Logger

	subMu       sync.RWMutex
	subscribers []func(id string, st engine.State)
}

func NewManager(settings engine.Settings, store Store, assets Assets, logger *slog.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		settings: settings,
		store:    store,
		assets:   assets,
		logger:   logger,
	}
}

// Subscribe регистрирует получателя изменений состояния.
func (m *Manager) Subscribe(fn func(id string, st engine.State)) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

func (m *Manager) publish(id string, st engine.State) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()
	for _, fn := range m.subscribers {
		fn(id, st)
	}
}

// Create заводит новый дизайн и открывает его.
func (m *Manager) Create(ctx context.Context, name string) (*Session, error) {
	id := uuid.NewString()
	if m.store != nil {
		if err := m.store.CreateDesign(ctx, id, name); err != nil {
			return nil, fmt.Errorf("create design: %w", err)
		}
	}

	s := m.newSession(id)
	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	log.Printf("[PLANNER] design %s created (%q)", id, name)
	return s, nil
}

// Open возвращает открытую сессию или поднимает дизайн из хранилища.
// Загрузка идет без блокировки менеджера: при гонке побеждает сессия,
// попавшая в реестр первой.
func (m *Manager) Open(ctx context.Context, id string) (*Session, error) {
	if s, ok := m.Get(id); ok {
		return s, nil
	}
	if m.store == nil {
		return nil, fmt.Errorf("open %s: %w", id, ErrSessionNotFound)
	}

	_, found, err := m.store.LoadState(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", id, err)
	}
	if !found {
		return nil, fmt.Errorf("open %s: %w", id, ErrSessionNotFound)
	}

	loaded := m.newSession(id)
	if _, err := loaded.editor.Load(ctx); err != nil {
		return nil, fmt.Errorf("open %s: %w", id, err)
	}

	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.sessions[id] = loaded
		s = loaded
	}
	m.mu.Unlock()

	if ok {
		loaded.resize.Stop()
		return s, nil
	}
	log.Printf("[PLANNER] design %s opened", id)
	return s, nil
}

// Get возвращает уже открытую сессию.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Close закрывает сессию без сохранения.
func (m *Manager) Close(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		s.resize.Stop()
		log.Printf("[PLANNER] design %s closed", id)
	}
	return ok
}

// SaveAll сохраняет все открытые дизайны. Возвращает первую ошибку.
func (m *Manager) SaveAll(ctx context.Context) error {
	m.mu.Lock()
	list := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, s)
	}
	m.mu.Unlock()

	var first error
	for _, s := range list {
		err := s.View(func(e *engine.Editor) error { return e.Save(ctx) })
		if err != nil {
			log.Printf("[PLANNER] save %s error: %v", s.ID, err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

func (m *Manager) newSession(id string) *Session {
	deps := engine.Deps{Logger: m.logger}
	if m.store != nil {
		deps.Store = m.store
	}
	if m.assets != nil {
		deps.Patterns = m.assets
		deps.Images = m.assets
	}
	editor := engine.New(id, m.settings, deps)
	return &Session{
		ID:     id,
		editor: editor,
		resize: viewport.NewDebouncer(editor.Settings().ResizeDebounce),
		notify: m.publish,
	}
}
