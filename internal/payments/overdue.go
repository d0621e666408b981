// atlant-crm/internal/payments/overdue.go
package payments

import (
	"log/slog"
	"math"
	"time"

	"atlant-crm/models"
)

// OverdueInfo - результат классификации просрочки для отчётов.
// Для плана рассрочки Amount и DueDate описывают только просроченный
// "хвост" взносов, а не весь остаток долга.
type OverdueInfo struct {
	Overdue     bool      `json:"overdue"`
	Amount      float64   `json:"representativeAmount"`
	DueDate     time.Time `json:"representativeDueDate"`
	DaysPastDue int       `json:"daysPastDue"`
}

// ClassifyOverdue решает, просрочен ли платеж на момент now.
//
// Для платежа с планом рассрочки смотрим только на взносы: просрочен тот,
// у кого status == pending и срок в прошлом. Опорная дата - самый старый
// пропуск (при равенстве дат - меньший номер взноса), опорная сумма -
// сумма просроченных взносов. Если взносы загрузить не удалось (loadErr),
// консервативно откатываемся к собственным полям платежа и логируем.
//
// Оплаченный платеж не считается просроченным ни при каких датах.
func ClassifyOverdue(p *models.Payment, installments []models.Installment, loadErr error, now time.Time) OverdueInfo {
	if p.Status == models.PaymentStatusPaid {
		return OverdueInfo{}
	}

	if p.PaymentPlanID != nil {
		if loadErr != nil {
			// Деградация: взносы недоступны, решаем по полям самого платежа
			slog.Warn("Не удалось загрузить взносы, просрочка определена по статусу платежа",
				"payment_id", p.ID, "error", loadErr)
			return classifySingle(p, now)
		}
		return classifyPlan(p, installments, now)
	}

	return classifySingle(p, now)
}

func classifyPlan(p *models.Payment, installments []models.Installment, now time.Time) OverdueInfo {
	var info OverdueInfo
	var oldest *models.Installment

	for i := range installments {
		inst := &installments[i]
		if inst.Status != models.PaymentStatusPending || !inst.DueDate.Before(now) {
			continue
		}
		info.Overdue = true
		info.Amount += inst.Amount
		if oldest == nil || inst.DueDate.Before(oldest.DueDate) ||
			(inst.DueDate.Equal(oldest.DueDate) && inst.Number < oldest.Number) {
			oldest = inst
		}
	}

	if !info.Overdue {
		return OverdueInfo{}
	}

	info.DueDate = oldest.DueDate
	info.DaysPastDue = daysPastDue(oldest.DueDate, now)
	return info
}

func classifySingle(p *models.Payment, now time.Time) OverdueInfo {
	overdue := p.Status == models.PaymentStatusOverdue ||
		(p.Status == models.PaymentStatusPending && p.DueDate != nil && p.DueDate.Before(now))
	if !overdue {
		return OverdueInfo{}
	}

	info := OverdueInfo{Overdue: true, Amount: p.Amount}
	if p.DueDate != nil {
		info.DueDate = *p.DueDate
		info.DaysPastDue = daysPastDue(*p.DueDate, now)
	}
	return info
}

func daysPastDue(due, now time.Time) int {
	days := int(math.Floor(now.Sub(due).Hours() / 24))
	if days < 0 {
		return 0
	}
	return days
}
