// atlant-crm/internal/payments/progress.go
package payments

import (
	"math"
	"time"

	"atlant-crm/models"
)

// ProgressSnapshot - производная сводка по взносам одного платежа.
// Никогда не сохраняется как источник истины, только пересчитывается.
type ProgressSnapshot struct {
	TotalInstallments   int                 `json:"totalInstallments"`
	PaidInstallments    int                 `json:"paidInstallments"`
	OverdueInstallments int                 `json:"overdueInstallments"`
	TotalAmount         float64             `json:"totalAmount"`
	PaidAmount          float64             `json:"paidAmount"`
	RemainingAmount     float64             `json:"remainingAmount"`
	ProgressPercentage  int                 `json:"progressPercentage"`
	NextDue             *models.Installment `json:"nextDue,omitempty"`
}

// ComputeProgress считает сводку по текущему срезу леджера.
// Чистая функция: никакого скрытого кэширования.
func ComputeProgress(installments []models.Installment, now time.Time) ProgressSnapshot {
	snap := ProgressSnapshot{TotalInstallments: len(installments)}

	for i := range installments {
		inst := &installments[i]
		snap.TotalAmount += inst.Amount

		switch inst.Status {
		case models.PaymentStatusPaid:
			snap.PaidInstallments++
			snap.PaidAmount += inst.Amount
		case models.PaymentStatusPending:
			if inst.DueDate.Before(now) {
				snap.OverdueInstallments++
			}
			if snap.NextDue == nil || inst.DueDate.Before(snap.NextDue.DueDate) {
				snap.NextDue = inst
			}
		}
	}

	snap.RemainingAmount = snap.TotalAmount - snap.PaidAmount
	if snap.TotalAmount > 0 {
		snap.ProgressPercentage = int(math.Round(100 * snap.PaidAmount / snap.TotalAmount))
	}
	return snap
}
