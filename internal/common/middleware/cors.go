package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
)

// CORS разрешает запросы редактора. Пустой список источников разрешает все (dev).
func CORS(origins string) fiber.Handler {
	allow := []string{"*"}
	if origins = strings.TrimSpace(origins); origins != "" {
		allow = strings.Split(origins, ",")
	}
	return cors.New(cors.Config{
		AllowOrigins: allow,
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
	})
}
