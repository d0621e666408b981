package main

import (
	"log/slog"
	"os"

	"atlant-crm/config"
	"atlant-crm/internal/routes"
	"atlant-crm/models"

	"github.com/gin-gonic/gin"
)

func main() {
	config.ConnectDB()
	config.ConnectRedis()
	config.InitAuth()

	// Автомиграция схемы
	err := config.DB.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.Parent{},
		&models.Athlete{},
		&models.PaymentPlan{},
		&models.PlanInstallmentTemplate{},
		&models.Payment{},
		&models.Installment{},
	)
	if err != nil {
		slog.Error("Ошибка миграции БД", "error", err)
		os.Exit(1)
	}

	r := gin.Default()
	routes.SetupRoutes(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	slog.Info("Сервер запущен", "port", port)
	if err := r.Run(":" + port); err != nil {
		slog.Error("Ошибка запуска сервера", "error", err)
		os.Exit(1)
	}
}
