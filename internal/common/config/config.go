package config

import (
	"os"
	"strconv"
	"time"

	"floorplan/internal/planner/engine"
)

// ============================================================
// Configuration
// ============================================================

type Config struct {
	Port         string
	LivePort     string
	Environment  string
	ReadTimeout  int
	WriteTimeout int

	DBPath      string
	AssetsDir   string
	CORSOrigins string

	GridSize      float64
	SnapThreshold float64
	WallThickness float64
	MaxHistory    int
	MinZoom       float64
	MaxZoom       float64
	ResizeDelayMS int
}

// Load загружает конфигурацию из переменных окружения
func Load() *Config {
	def := engine.DefaultSettings()
	return &Config{
		Port:         getEnv("PORT", "3000"),
		LivePort:     getEnv("LIVE_PORT", "3001"),
		Environment:  getEnv("ENV", "development"),
		ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
		WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 10),

		DBPath:      getEnv("PLANNER_DB_PATH", "data/db/planner.db"),
		AssetsDir:   getEnv("ASSETS_DIR", "assets"),
		CORSOrigins: getEnv("CORS_ORIGINS", ""),

		GridSize:      getEnvAsFloat("GRID_SIZE", def.SubGridSize),
		SnapThreshold: getEnvAsFloat("SNAP_THRESHOLD", def.SnapThreshold),
		WallThickness: getEnvAsFloat("WALL_THICKNESS", def.WallThickness),
		MaxHistory:    getEnvAsInt("MAX_HISTORY", def.MaxHistory),
		MinZoom:       getEnvAsFloat("MIN_ZOOM", def.MinZoom),
		MaxZoom:       getEnvAsFloat("MAX_ZOOM", def.MaxZoom),
		ResizeDelayMS: getEnvAsInt("RESIZE_DEBOUNCE_MS", int(def.ResizeDebounce/time.Millisecond)),
	}
}

// Engine возвращает настройки движка с учетом окружения.
func (c *Config) Engine() engine.Settings {
	s := engine.DefaultSettings()
	s.SubGridSize = c.GridSize
	s.SnapThreshold = c.SnapThreshold
	s.WallThickness = c.WallThickness
	s.MaxHistory = c.MaxHistory
	s.MinZoom = c.MinZoom
	s.MaxZoom = c.MaxZoom
	s.ResizeDebounce = time.Duration(c.ResizeDelayMS) * time.Millisecond
	return s
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
