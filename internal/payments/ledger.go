// atlant-crm/internal/payments/ledger.go
package payments

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"atlant-crm/models"

	"gorm.io/gorm"
)

// Ledger - единственная точка изменения статусов взносов.
// Все остальные компоненты только читают через ListInstallments.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// ListInstallments возвращает взносы платежа по возрастанию номера.
// Для разового платежа без плана возвращается пустой список, это не ошибка.
func (l *Ledger) ListInstallments(paymentID uint) ([]models.Installment, error) {
	var installments []models.Installment
	err := l.db.
		Where("payment_id = ?", paymentID).
		Order("installment_number ASC").
		Find(&installments).Error
	if err != nil {
		return nil, err
	}
	return installments, nil
}

// MarkPaid отмечает взнос оплаченным. Для ручных оплат (manual != nil)
// в Notes дописывается структурированная запись о способе и авторе.
// Повторная отметка уже оплаченного взноса возвращает ErrAlreadyPaid;
// вызывающая сторона вправе трактовать это как успех (идемпотентность).
func (l *Ledger) MarkPaid(installmentID uint, manual *models.ManualPaymentRecord) (*models.Installment, error) {
	var installment models.Installment

	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&installment, installmentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInstallmentNotFound
			}
			return err
		}

		if installment.Status == models.PaymentStatusPaid {
			return ErrAlreadyPaid
		}

		now := time.Now()
		installment.Status = models.PaymentStatusPaid
		installment.PaidAt = &now
		if manual != nil {
			manual.At = now
			// Прежние заметки не теряем - переносим внутрь новой записи.
			// Для старой записи о ручной оплате сохраняем способ, автора
			// и дату: после отмены и повторной отметки след не пропадает.
			if installment.Notes != "" {
				carried := installment.Notes
				if prev := models.ParseManualPaymentNote(installment.Notes); prev != nil {
					carried = fmt.Sprintf("ранее: %s, %s, %s", prev.Method, prev.Actor, prev.At.Format("02.01.2006 15:04"))
					if prev.Note != "" {
						carried += " (" + prev.Note + ")"
					}
				}
				if manual.Note != "" {
					manual.Note = carried + "; " + manual.Note
				} else {
					manual.Note = carried
				}
			}
			installment.Notes = models.EncodeManualPaymentNote(*manual)
		}

		if err := tx.Save(&installment).Error; err != nil {
			return err
		}

		return l.syncPaymentStatus(tx, installment.PaymentID)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Взнос отмечен оплаченным", "installment_id", installment.ID, "payment_id", installment.PaymentID)
	return &installment, nil
}

// MarkUnpaid возвращает взнос в состояние pending и очищает PaidAt.
// Это путь исправления ошибки, а не возврат денег: внешние записи об
// оплате не трогаются. Notes сохраняются как история.
func (l *Ledger) MarkUnpaid(installmentID uint) (*models.Installment, error) {
	var installment models.Installment

	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&installment, installmentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInstallmentNotFound
			}
			return err
		}

		if installment.Status != models.PaymentStatusPaid {
			return ErrNotPaid
		}

		installment.Status = models.PaymentStatusPending
		installment.PaidAt = nil

		// Save игнорирует nil в указателях при Updates, поэтому пишем явно
		if err := tx.Model(&installment).
			Select("status", "paid_at").
			Updates(map[string]interface{}{"status": models.PaymentStatusPending, "paid_at": nil}).Error; err != nil {
			return err
		}

		return l.syncPaymentStatus(tx, installment.PaymentID)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Оплата взноса отменена", "installment_id", installment.ID, "payment_id", installment.PaymentID)
	return &installment, nil
}

// MarkFailed фиксирует неуспешную попытку списания картой. Пишется только
// обработчиком вебхука платёжного шлюза. Оплаченный взнос не трогаем.
func (l *Ledger) MarkFailed(installmentID uint) (*models.Installment, error) {
	var installment models.Installment

	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&installment, installmentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInstallmentNotFound
			}
			return err
		}
		if installment.Status == models.PaymentStatusPaid {
			return ErrAlreadyPaid
		}
		installment.Status = models.PaymentStatusFailed
		return tx.Save(&installment).Error
	})
	if err != nil {
		return nil, err
	}
	return &installment, nil
}

// syncPaymentStatus обновляет справочный статус родительского платежа:
// все взносы оплачены -> paid, иначе pending. Поле носит информационный
// характер (источник истины - взносы), но держим его согласованным,
// чтобы старые списки не показывали явную чушь.
func (l *Ledger) syncPaymentStatus(tx *gorm.DB, paymentID uint) error {
	var payment models.Payment
	if err := tx.First(&payment, paymentID).Error; err != nil {
		return err
	}

	// Разовый платеж без плана здесь не трогаем
	if payment.PaymentPlanID == nil {
		return nil
	}

	var unpaid int64
	if err := tx.Model(&models.Installment{}).
		Where("payment_id = ? AND status <> ?", paymentID, models.PaymentStatusPaid).
		Count(&unpaid).Error; err != nil {
		return err
	}

	if unpaid == 0 {
		now := time.Now()
		payment.Status = models.PaymentStatusPaid
		payment.PaidAt = &now
		return tx.Save(&payment).Error
	}

	if payment.Status == models.PaymentStatusPaid {
		return tx.Model(&payment).
			Select("status", "paid_at").
			Updates(map[string]interface{}{"status": models.PaymentStatusPending, "paid_at": nil}).Error
	}
	return nil
}
