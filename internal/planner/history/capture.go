package history

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"floorplan/internal/planner/models"
	"floorplan/internal/planner/plog"
)

// Capture собирает снимок сцены. Временные объекты пропускаются,
// паттерны выносятся в imageResources и canvasLayers.
func Capture(objects []*models.SceneObject, unfinishedID string, completed []string) *models.Snapshot {
	snap := models.NewSnapshot()
	resources := make(map[string]string)

	for _, o := range objects {
		if o.Transient || o.Name == models.NameWallPreview || o.Name == models.NameWallEndpoint {
			continue
		}
		cp := o.Clone()
		cp.Pattern = nil
		snap.CanvasState.Objects = append(snap.CanvasState.Objects, cp)

		if o.Pattern == nil || o.Pattern.SourceURL == "" {
			continue
		}
		id, ok := resources[o.Pattern.SourceURL]
		if !ok {
			id = fmt.Sprintf("img_%d", len(resources))
			resources[o.Pattern.SourceURL] = id
			snap.ImageResources[id] = o.Pattern.SourceURL
		}
		snap.CanvasLayers = append(snap.CanvasLayers, models.PatternLayer{
			Index: len(snap.CanvasState.Objects) - 1,
			Pattern: models.PatternRef{
				SourceID: id,
				Repeat:   o.Pattern.Repeat,
				ScaleX:   o.Pattern.ScaleX,
				ScaleY:   o.Pattern.ScaleY,
			},
		})
	}

	if unfinishedID != "" {
		id := unfinishedID
		snap.UnfinishedWallID = &id
	}
	snap.CompletedWallIDs = append(snap.CompletedWallIDs, completed...)
	return snap
}

// ImageLoader загружает картинку паттерна по URL.
type ImageLoader interface {
	Load(ctx context.Context, url string) (image.Image, error)
}

// Hydrate загружает все картинки снимка параллельно, дожидается всех и
// навешивает паттерны на объекты по индексу. Неудачная загрузка дает
// плоскую нейтральную заливку.
func Hydrate(ctx context.Context, snap *models.Snapshot, images ImageLoader, log *slog.Logger) []*models.SceneObject {
	log = plog.OrNop(log)
	objects := make([]*models.SceneObject, 0, len(snap.CanvasState.Objects))
	for _, o := range snap.CanvasState.Objects {
		if o != nil {
			objects = append(objects, o)
		}
	}
	if len(objects) != len(snap.CanvasState.Objects) {
		// без пустых элементов индексы слоев уже не совпадут
		log.Warn("snapshot contains null objects, patterns dropped")
		return objects
	}

	loaded := preload(ctx, snap.ImageResources, images)

	for _, layer := range snap.CanvasLayers {
		obj := objects[layer.Index]
		url := snap.ImageResources[layer.Pattern.SourceID]
		sx := models.ClampPatternScale(layer.Pattern.ScaleX, 1)
		sy := models.ClampPatternScale(layer.Pattern.ScaleY, 1)
		res, ok := loaded[layer.Pattern.SourceID]
		switch {
		case images == nil:
			obj.Pattern = &models.PatternFill{
				SourceURL: url,
				Repeat:    layer.Pattern.Repeat,
				ScaleX:    sx,
				ScaleY:    sy,
			}
		case !ok || res.err != nil:
			var err error
			if ok {
				err = res.err
			}
			log.Warn("pattern image unavailable, using flat fill", "object", obj.ID, "url", url, "err", err)
			obj.Pattern = models.NeutralFill(url, sx, sy)
		default:
			obj.Pattern = &models.PatternFill{
				SourceURL: url,
				Repeat:    layer.Pattern.Repeat,
				ScaleX:    sx,
				ScaleY:    sy,
				Image:     res.img,
			}
		}
	}
	return objects
}

type loadResult struct {
	img image.Image
	err error
}

func preload(ctx context.Context, resources map[string]string, images ImageLoader) map[string]loadResult {
	out := make(map[string]loadResult, len(resources))
	if images == nil {
		return out
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for id, url := range resources {
		wg.Add(1)
		go func(id, url string) {
			defer wg.Done()
			img, err := images.Load(ctx, url)
			mu.Lock()
			out[id] = loadResult{img: img, err: err}
			mu.Unlock()
		}(id, url)
	}
	wg.Wait()
	return out
}
