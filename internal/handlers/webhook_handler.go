// atlant-crm/internal/handlers/webhook_handler.go
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"atlant-crm/config"
	"atlant-crm/internal/payments"

	"github.com/gin-gonic/gin"
)

// GatewayWebhookInput определяет структуру колбэка платёжного шлюза.
type GatewayWebhookInput struct {
	InstallmentID uint   `json:"installmentId" binding:"required"`
	Status        string `json:"status" binding:"required"` // "succeeded" | "failed"
	ExternalID    string `json:"externalId"`
}

// GatewayWebhookHandler обрабатывает подтверждение списания от шлюза.
// Это единственное место, где взнос может получить статус failed.
// Ручные оплаты сюда не попадают - для них есть ManualInstallmentActionHandler.
func GatewayWebhookHandler(c *gin.Context) {
	var input GatewayWebhookInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	ledger := payments.NewLedger(config.DB)

	switch input.Status {
	case "succeeded":
		installment, err := ledger.MarkPaid(input.InstallmentID, nil)
		if errors.Is(err, payments.ErrAlreadyPaid) {
			// Шлюз может прислать колбэк повторно - это не ошибка
			slog.Info("Повторный колбэк по оплаченному взносу пропущен",
				"installment_id", input.InstallmentID, "external_id", input.ExternalID)
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		if err != nil {
			webhookError(c, err)
			return
		}

		invalidateProgressCache(installment.PaymentID)

		list, err := ledger.ListInstallments(installment.PaymentID)
		if err == nil {
			go verifyAndBroadcastProgress(installment.PaymentID, payments.ComputeProgress(list, time.Now()))
		}

		slog.Info("Взнос оплачен через шлюз",
			"installment_id", installment.ID, "external_id", input.ExternalID)
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Платеж успешно обработан"})

	case "failed":
		installment, err := ledger.MarkFailed(input.InstallmentID)
		if errors.Is(err, payments.ErrAlreadyPaid) {
			// Оплаченный взнос неуспешной попыткой не перетираем
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		if err != nil {
			webhookError(c, err)
			return
		}

		invalidateProgressCache(installment.PaymentID)
		slog.Warn("Списание по взносу не прошло",
			"installment_id", installment.ID, "external_id", input.ExternalID)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неизвестный статус: " + input.Status})
	}
}

func webhookError(c *gin.Context, err error) {
	if errors.Is(err, payments.ErrInstallmentNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Взнос не найден"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process payment: " + err.Error()})
}
