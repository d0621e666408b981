// FILE: atlant-crm/models/payment.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// Статусы платежа и взносов. Для платежа с планом рассрочки поле Status
// носит справочный характер: фактическое состояние живёт во взносах.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusPaid      = "paid"
	PaymentStatusOverdue   = "overdue"
	PaymentStatusCancelled = "cancelled"
	PaymentStatusFailed    = "failed" // только для взносов; пишется шлюзом
)

// Payment представляет одно денежное обязательство родителя.
// Если PaymentPlanID установлен, сумма разбита на взносы (Installments),
// и собственные Status/DueDate платежа - лишь кэш, не источник истины.
type Payment struct {
	gorm.Model
	ParentID       uint         `json:"parentId" gorm:"not null;index"`
	Parent         *Parent      `json:"parent,omitempty" gorm:"foreignKey:ParentID"`
	PaymentPlanID  *uint        `json:"paymentPlanId,omitempty"`
	PaymentPlan    *PaymentPlan `json:"paymentPlan,omitempty" gorm:"foreignKey:PaymentPlanID"`
	Amount         float64      `json:"amount" gorm:"type:numeric(12,2);not null"`
	Status         string       `json:"status" gorm:"default:'pending'"`
	DueDate        *time.Time   `json:"dueDate,omitempty"` // для разовых платежей без плана
	PaidAt         *time.Time   `json:"paidAt,omitempty"`
	Notes          string       `json:"notes"`
	RemindersSent  int          `json:"remindersSent"`
	LastReminderAt *time.Time   `json:"lastReminderAt,omitempty"`

	Installments []Installment `json:"installments,omitempty" gorm:"foreignKey:PaymentID"`
}

func (Payment) TableName() string { return "payments" }
