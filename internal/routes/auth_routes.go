package routes

import (
	"atlant-crm/internal/handlers"

	"github.com/gin-gonic/gin"
)

// RegisterAuthRoutes регистрирует публичные маршруты.
// Эти маршруты не требуют middleware для проверки токена.
func RegisterAuthRoutes(r *gin.Engine) {
	r.POST("/login", handlers.LoginHandler)
	r.GET("/logout", handlers.LogoutHandler)
	r.POST("/register", handlers.RegisterHandler)

	// Колбэк платёжного шлюза. Аутентифицируется на уровне
	// инфраструктуры (подпись шлюза проверяет обратный прокси).
	r.POST("/webhook/gateway", handlers.GatewayWebhookHandler)
}
