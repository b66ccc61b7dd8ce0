package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

// ============================================================
// Logger Middleware
// ============================================================

// Logger логирует запросы к API планировщика. События перемещения
// указателя не логируются.
func Logger() fiber.Handler {
	return logger.New(logger.Config{
		Format:     "[${time}] [PLANNER] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
		Next: func(c fiber.Ctx) bool {
			return strings.HasSuffix(c.Path(), "/pointer/move")
		},
	})
}
