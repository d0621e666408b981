// models/payment_plan.go

package models

import "gorm.io/gorm"

// PaymentPlan представляет форму оплаты: шаблон разбивки суммы на взносы.
type PaymentPlan struct {
	gorm.Model
	Name              string                    `json:"name"`
	InstallmentsCount int                       `json:"installments_count"`
	Templates         []PlanInstallmentTemplate `json:"templates" gorm:"foreignKey:PaymentPlanID"`
}

// PlanInstallmentTemplate описывает один взнос шаблона: месяц, день и формула суммы.
// Формула вычисляется через govaluate, параметры - "Сумма" и "Скидка".
type PlanInstallmentTemplate struct {
	gorm.Model
	PaymentPlanID uint   `json:"payment_plan_id"`
	Month         string `json:"month"`
	Day           int    `json:"day"`
	Formula       string `json:"formula"`
}

// TableName задает имя таблицы для GORM.
func (PaymentPlan) TableName() string {
	return "payment_plans"
}

// TableName задает имя таблицы для GORM.
func (PlanInstallmentTemplate) TableName() string {
	return "plan_installment_templates"
}
