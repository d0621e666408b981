// FILE: atlant-crm/models/installment.go
package models

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Installment - один взнос в рамках платежа (Payment).
// Статус меняет только леджер (internal/payments): оплата из шлюза или
// ручная отметка администратора. Записи никогда не удаляются, только
// возвращаются в pending.
type Installment struct {
	gorm.Model
	PaymentID     uint       `json:"paymentId" gorm:"not null;index"`
	Payment       *Payment   `json:"-" gorm:"foreignKey:PaymentID"`
	Number        int        `json:"installmentNumber" gorm:"column:installment_number;not null"`
	Amount        float64    `json:"amount" gorm:"type:numeric(12,2);not null"`
	DueDate       time.Time  `json:"dueDate" gorm:"not null"`
	Status        string     `json:"status" gorm:"default:'pending'"`
	PaidAt        *time.Time `json:"paidAt,omitempty"`
	GraceUntil    *time.Time `json:"graceUntil,omitempty"`
	RemindersSent int        `json:"remindersSent"`

	// Notes - свободный текст. Для ручных оплат сюда пишется JSON-запись
	// {"manualPayment": {...}}; старые данные могут быть простым текстом.
	Notes string `json:"notes"`
}

func (Installment) TableName() string { return "installments" }

// ManualPaymentRecord - структурированная запись о ручной оплате
// (наличные, перевод), сохраняемая в поле Notes взноса.
type ManualPaymentRecord struct {
	Method  string    `json:"method"`
	Note    string    `json:"note,omitempty"`
	Actor   string    `json:"actor"`
	At      time.Time `json:"at"`
	Receipt string    `json:"receipt,omitempty"`
}

type manualNoteEnvelope struct {
	ManualPayment *ManualPaymentRecord `json:"manualPayment"`
}

// EncodeManualPaymentNote сериализует запись о ручной оплате для поля Notes.
func EncodeManualPaymentNote(rec ManualPaymentRecord) string {
	data, err := json.Marshal(manualNoteEnvelope{ManualPayment: &rec})
	if err != nil {
		// json.Marshal на этой структуре не падает; оставляем хоть что-то читаемое
		return rec.Method + ": " + rec.Note
	}
	return string(data)
}

// ParseManualPaymentNote пытается разобрать Notes как JSON-запись о ручной
// оплате. Возвращает nil для простого текста или пустого поля - старые
// записи хранили заметки без структуры, это не ошибка.
func ParseManualPaymentNote(notes string) *ManualPaymentRecord {
	trimmed := strings.TrimSpace(notes)
	if trimmed == "" || !strings.HasPrefix(trimmed, "{") {
		return nil
	}
	var env manualNoteEnvelope
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
		return nil
	}
	return env.ManualPayment
}
