// atlant-crm/internal/handlers/manual_payment_handler.go
package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"atlant-crm/config"
	"atlant-crm/internal/fence"
	"atlant-crm/internal/payments"
	"atlant-crm/models"

	"github.com/divan/num2words"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ManualActionInput - запрос на ручную отметку оплаты взноса.
// Используется, когда деньги приняты мимо платёжного шлюза:
// наличные, чек, банковский перевод.
type ManualActionInput struct {
	MarkPaid bool   `json:"markPaid"`
	Method   string `json:"method"`
	Note     string `json:"note"`
}

// ManualActionResponse возвращает взнос и синхронно пересчитанную сводку.
// Именно эту сводку барьер согласованности будет ждать от последующих чтений.
type ManualActionResponse struct {
	Installment *models.Installment       `json:"installment"`
	Progress    payments.ProgressSnapshot `json:"progress"`
	Receipt     string                    `json:"receipt,omitempty"`
}

// ManualInstallmentActionHandler - единственная административная точка входа
// для "деньги получены вне шлюза". Со шлюзом не общается вовсе.
func ManualInstallmentActionHandler(c *gin.Context) {
	paymentID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректный ID платежа"})
		return
	}
	installmentID, err := strconv.Atoi(c.Param("installmentId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректный ID взноса"})
		return
	}

	var input ManualActionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.MarkPaid && input.Method == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не указан способ оплаты (method)"})
		return
	}

	// Защита от подмены: взнос обязан принадлежать платежу из URL
	var target models.Installment
	if err := config.DB.First(&target, installmentID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Взнос не найден"})
		return
	}
	if target.PaymentID != uint(paymentID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Взнос не относится к указанному платежу"})
		return
	}

	actor := c.GetString("login")
	ledger := payments.NewLedger(config.DB)

	var installment *models.Installment
	var receipt string

	if input.MarkPaid {
		receipt = uuid.NewString()
		installment, err = ledger.MarkPaid(uint(installmentID), &models.ManualPaymentRecord{
			Method:  input.Method,
			Note:    input.Note,
			Actor:   actor,
			Receipt: receipt,
		})
		if errors.Is(err, payments.ErrAlreadyPaid) {
			// Повторная отметка - не ошибка, просто нечего делать
			slog.Info("Взнос уже был оплачен. Повторная отметка пропущена.",
				"installment_id", installmentID, "actor", actor)
			installment = &target
			receipt = ""
			err = nil
		}
	} else {
		installment, err = ledger.MarkUnpaid(uint(installmentID))
		if errors.Is(err, payments.ErrNotPaid) {
			c.JSON(http.StatusConflict, gin.H{"error": "Взнос не оплачен, отменять нечего"})
			return
		}
	}

	if err != nil {
		if errors.Is(err, payments.ErrInstallmentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Взнос не найден"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось обновить взнос: " + err.Error()})
		return
	}

	// Сводку пересчитываем и возвращаем в том же запросе: это то состояние,
	// которое клиент вправе показывать сразу, не дожидаясь свежего чтения
	list, err := ledger.ListInstallments(uint(paymentID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось перечитать взносы"})
		return
	}
	progress := payments.ComputeProgress(list, time.Now())

	invalidateProgressCache(uint(paymentID))
	go verifyAndBroadcastProgress(uint(paymentID), progress)

	resp := ManualActionResponse{Installment: installment, Progress: progress}
	if receipt != "" {
		resp.Receipt = fmt.Sprintf("Квитанция %s: %s, принял(а) %s", receipt, amountInWords(installment.Amount), actor)
	}
	c.JSON(http.StatusOK, resp)
}

// verifyAndBroadcastProgress перечитывает сводку из БД через барьер
// согласованности и рассылает подтверждённое значение дашбордам.
// Чтение может попасть на отстающую реплику, поэтому сверяем его с тем,
// что запись вернула синхронно.
func verifyAndBroadcastProgress(paymentID uint, written payments.ProgressSnapshot) {
	guard := fence.NewGuard()
	guard.Arm(written)

	ledger := payments.NewLedger(config.DB)
	snap, err := guard.WaitFresh(func() (payments.ProgressSnapshot, error) {
		list, err := ledger.ListInstallments(paymentID)
		if err != nil {
			return payments.ProgressSnapshot{}, err
		}
		return payments.ComputeProgress(list, time.Now()), nil
	})
	if err != nil {
		slog.Error("Не удалось подтвердить сводку прогресса", "payment_id", paymentID, "error", err)
		return
	}

	PaymentsHub.BroadcastProgress(paymentID, snap)
}

// amountInWords - сумма прописью для квитанции.
func amountInWords(amount float64) string {
	rubles := int(amount)
	kopecks := int(math.Round((amount - float64(rubles)) * 100))
	return fmt.Sprintf("%s rub. %02d kop.", num2words.Convert(rubles), kopecks)
}
