package routes

import (
	"atlant-crm/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupRoutes инициализирует все маршруты приложения.
func SetupRoutes(r *gin.Engine) {
	// Публичные маршруты: вход и колбэк платёжного шлюза.
	RegisterAuthRoutes(r)

	// Всё остальное - только для аутентифицированных пользователей.
	authRequired := r.Group("/")
	authRequired.Use(middleware.AuthMiddleware())
	{
		RegisterAPIRoutes(authRequired)
	}
}
