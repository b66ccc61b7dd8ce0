package engine

import (
	"context"
	"fmt"

	"floorplan/internal/planner/history"
)

// Serialize возвращает текущее состояние в формате сохранения.
func (e *Editor) Serialize() ([]byte, error) {
	snap := history.Capture(e.scene.Objects(), e.walls.UnfinishedID(), e.walls.CompletedIDs())
	return snap.Encode()
}

// ApplyState заменяет сцену сохраненным состоянием и начинает историю с него.
func (e *Editor) ApplyState(ctx context.Context, data []byte) error {
	if e.IsDrawing() {
		e.FinishDrawWall(ctx)
	}
	return e.history.Load(ctx, data)
}

// Save отправляет состояние в хранилище. Ошибка сохраняется в SaveError,
// сцена не откатывается.
func (e *Editor) Save(ctx context.Context) error {
	if e.store == nil {
		return ErrNoStore
	}
	data, err := e.Serialize()
	if err != nil {
		e.saveErr = err
		return fmt.Errorf("save %s: %w", e.designID, err)
	}
	if err := e.store.SaveDesign(ctx, e.designID, string(data)); err != nil {
		e.saveErr = err
		e.log.Warn("design not saved", "err", err)
		return fmt.Errorf("save %s: %w", e.designID, err)
	}
	e.saveErr = nil
	return nil
}

// Load подгружает сохраненное состояние. false, если в хранилище ничего нет.
func (e *Editor) Load(ctx context.Context) (bool, error) {
	if e.store == nil {
		return false, ErrNoStore
	}
	state, ok, err := e.store.LoadState(ctx, e.designID)
	if err != nil {
		return false, fmt.Errorf("load %s: %w", e.designID, err)
	}
	if !ok || state == "" {
		return false, nil
	}
	if err := e.ApplyState(ctx, []byte(state)); err != nil {
		return false, fmt.Errorf("load %s: %w", e.designID, err)
	}
	return true, nil
}

// SaveError возвращает ошибку последнего сохранения.
func (e *Editor) SaveError() error { return e.saveErr }
