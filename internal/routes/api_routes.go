// atlant-crm/internal/routes/api_routes.go
package routes

import (
	"atlant-crm/internal/handlers"
	"atlant-crm/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterAPIRoutes регистрирует все маршруты API, требующие аутентификации.
func RegisterAPIRoutes(api *gin.RouterGroup) {
	apiGroup := api.Group("/api")
	{
		// --- ПЛАТЕЖИ И ВЗНОСЫ ---
		paymentsGroup := apiGroup.Group("/payments")
		{
			paymentsGroup.GET("/overdue", middleware.PermissionMiddleware("payments_view"), handlers.ListOverduePaymentsHandler)
			paymentsGroup.GET("/overdue/export", middleware.PermissionMiddleware("payments_view"), handlers.ExportOverduePaymentsHandler)
			paymentsGroup.GET("/:id/progress", middleware.PermissionMiddleware("payments_view"), handlers.GetPaymentProgressHandler)
			paymentsGroup.GET("/:id/installments", middleware.PermissionMiddleware("payments_view"), handlers.ListPaymentInstallmentsHandler)
			paymentsGroup.POST("/:id/installments/:installmentId/manual", middleware.PermissionMiddleware("payments_manual_mark"), handlers.ManualInstallmentActionHandler)
			paymentsGroup.POST("/:id/generate-plan", middleware.PermissionMiddleware("payments_edit"), handlers.RegeneratePlanInstallmentsHandler)
			paymentsGroup.POST("/:id/remind", middleware.PermissionMiddleware("payments_remind"), handlers.RemindPaymentHandler)
		}

		// --- ФОРМЫ ОПЛАТЫ ---
		plans := apiGroup.Group("/payment-plans")
		plans.Use(middleware.PermissionMiddleware("payment_plans_view"))
		{
			plans.GET("", handlers.ListPaymentPlansHandler)
			plans.POST("", middleware.PermissionMiddleware("payment_plans_edit"), handlers.CreatePaymentPlanHandler)
		}

		// --- РОДИТЕЛИ ---
		parents := apiGroup.Group("/parents")
		{
			parents.POST("/:id/payments", middleware.PermissionMiddleware("payments_edit"), handlers.CreatePaymentForParentHandler)
		}

		// --- ДАШБОРД ---
		apiGroup.GET("/ws", handlers.PaymentsWSEndpoint)
	}
}
