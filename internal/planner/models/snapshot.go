package models

import (
	"encoding/json"
	"fmt"
)

// ============================================================
// Serialized scene format
// ============================================================

type CanvasState struct {
	Objects []*SceneObject `json:"objects"`
}

type PatternRef struct {
	SourceID string  `json:"sourceId"`
	Repeat   string  `json:"repeat"`
	ScaleX   float64 `json:"scaleX"`
	ScaleY   float64 `json:"scaleY"`
}

// PatternLayer связывает объект (по индексу в canvasState.objects) с паттерном.
type PatternLayer struct {
	Index   int        `json:"index"`
	Pattern PatternRef `json:"pattern"`
}

// Snapshot служит снимком истории и одновременно форматом сохранения дизайна.
type Snapshot struct {
	CanvasState      CanvasState       `json:"canvasState"`
	CanvasLayers     []PatternLayer    `json:"canvasLayers"`
	ImageResources   map[string]string `json:"imageResources"`
	UnfinishedWallID *string           `json:"unfinishedWallId"`
	CompletedWallIDs []string          `json:"completedWallIds"`
}

// NewSnapshot возвращает пустой снимок с инициализированными коллекциями.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		CanvasState:      CanvasState{Objects: []*SceneObject{}},
		CanvasLayers:     []PatternLayer{},
		ImageResources:   map[string]string{},
		CompletedWallIDs: []string{},
	}
}

// Encode сериализует снимок в JSON.
func (s *Snapshot) Encode() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot разбирает JSON снимка. Пустые коллекции заменяются пустыми значениями.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	snap := NewSnapshot()
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.CanvasState.Objects == nil {
		snap.CanvasState.Objects = []*SceneObject{}
	}
	if snap.ImageResources == nil {
		snap.ImageResources = map[string]string{}
	}
	if snap.CompletedWallIDs == nil {
		snap.CompletedWallIDs = []string{}
	}
	for i, layer := range snap.CanvasLayers {
		if layer.Index < 0 || layer.Index >= len(snap.CanvasState.Objects) {
			return nil, fmt.Errorf("decode snapshot: layer %d references object %d out of range", i, layer.Index)
		}
	}
	return snap, nil
}

// UnfinishedID возвращает id незавершенной цепочки или пустую строку.
func (s *Snapshot) UnfinishedID() string {
	if s.UnfinishedWallID == nil {
		return ""
	}
	return *s.UnfinishedWallID
}
