// atlant-crm/internal/handlers/progress_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"atlant-crm/config"
	"atlant-crm/internal/payments"
	"atlant-crm/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// progressCacheTTL - время жизни кэша сводки. Кэш - лишь транзитный срез,
// источником истины остаётся леджер; любая мутация его сбрасывает.
const progressCacheTTL = 30 * time.Second

// GetPaymentProgressHandler возвращает сводку прогресса по платежу.
func GetPaymentProgressHandler(c *gin.Context) {
	paymentID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректный ID платежа"})
		return
	}

	var payment models.Payment
	if err := config.DB.First(&payment, paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Платеж не найден"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	cacheKey := progressCacheKey(payment.ID)
	if config.RDB != nil {
		if cached, err := config.RDB.Get(config.Ctx, cacheKey).Result(); err == nil {
			var snap payments.ProgressSnapshot
			if json.Unmarshal([]byte(cached), &snap) == nil {
				c.JSON(http.StatusOK, snap)
				return
			}
		}
	}

	ledger := payments.NewLedger(config.DB)
	list, err := ledger.ListInstallments(payment.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось загрузить взносы"})
		return
	}

	snap := payments.ComputeProgress(list, time.Now())

	if config.RDB != nil {
		if data, err := json.Marshal(snap); err == nil {
			if err := config.RDB.Set(config.Ctx, cacheKey, data, progressCacheTTL).Err(); err != nil {
				slog.Warn("Не удалось закэшировать сводку прогресса", "payment_id", payment.ID, "error", err)
			}
		}
	}

	c.JSON(http.StatusOK, snap)
}

// ListPaymentInstallmentsHandler возвращает взносы платежа по порядку номеров.
func ListPaymentInstallmentsHandler(c *gin.Context) {
	paymentID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректный ID платежа"})
		return
	}

	ledger := payments.NewLedger(config.DB)
	list, err := ledger.ListInstallments(uint(paymentID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось загрузить взносы"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": list})
}
