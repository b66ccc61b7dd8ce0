// Package patterns загружает картинки для текстурных заливок комнат.
package patterns

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"floorplan/internal/planner/models"
)

var ErrOutsideRoot = errors.New("pattern path escapes assets root")

// maxImageBytes ограничивает размер скачиваемой картинки.
const maxImageBytes = 16 << 20

type PatternOptions struct {
	ScaleX float64
	ScaleY float64
}

// ============================================================
// Loader
// ============================================================

// Loader загружает картинки по http(s) или из каталога ассетов и кэширует их.
type Loader struct {
	root   string
	client *http.Client

	mu    sync.Mutex
	cache map[string]image.Image
}

func NewLoader(assetsRoot string, client *http.Client) *Loader {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Loader{
		root:   assetsRoot,
		client: client,
		cache:  make(map[string]image.Image),
	}
}

// Load возвращает картинку по URL. Безопасен для параллельного вызова.
func (l *Loader) Load(ctx context.Context, url string) (image.Image, error) {
	l.mu.Lock()
	img, ok := l.cache[url]
	l.mu.Unlock()
	if ok {
		return img, nil
	}

	rc, err := l.open(ctx, url)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	img, _, err = image.Decode(io.LimitReader(rc, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("decode pattern %s: %w", url, err)
	}

	l.mu.Lock()
	l.cache[url] = img
	l.mu.Unlock()
	return img, nil
}

func (l *Loader) open(ctx context.Context, url string) (io.ReadCloser, error) {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("build request %s: %w", url, err)
		}
		resp, err := l.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch pattern %s: %w", url, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("fetch pattern %s: status %d", url, resp.StatusCode)
		}
		return resp.Body, nil
	}

	path, err := l.localPath(url)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pattern %s: %w", url, err)
	}
	return f, nil
}

func (l *Loader) localPath(url string) (string, error) {
	rel := filepath.Clean("/" + strings.TrimPrefix(url, "file://"))
	path := filepath.Join(l.root, rel)
	root, err := filepath.Abs(l.root)
	if err != nil {
		return "", fmt.Errorf("resolve assets root: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve pattern %s: %w", url, err)
	}
	if abs != root && !strings.HasPrefix(abs, root+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", url, ErrOutsideRoot)
	}
	return abs, nil
}

// ApplyPattern загружает картинку и ставит объекту текстурную заливку.
// При ошибке объект получает нейтральную плоскую заливку, ошибка возвращается.
func (l *Loader) ApplyPattern(ctx context.Context, obj *models.SceneObject, url string, opts PatternOptions) error {
	if opts.ScaleX <= 0 {
		opts.ScaleX = 1
	}
	if opts.ScaleY <= 0 {
		opts.ScaleY = 1
	}
	img, err := l.Load(ctx, url)
	if err != nil {
		obj.Pattern = models.NeutralFill(url, opts.ScaleX, opts.ScaleY)
		return fmt.Errorf("apply pattern to %s: %w", obj.ID, err)
	}
	obj.Pattern = &models.PatternFill{
		SourceURL: url,
		Repeat:    "repeat",
		ScaleX:    opts.ScaleX,
		ScaleY:    opts.ScaleY,
		Image:     img,
	}
	return nil
}
