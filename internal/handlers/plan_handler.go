// atlant-crm/internal/handlers/plan_handler.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"atlant-crm/config"
	"atlant-crm/models"

	"github.com/Knetic/govaluate"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ListPaymentPlansHandler возвращает все формы оплаты с шаблонами взносов.
func ListPaymentPlansHandler(c *gin.Context) {
	var plans []models.PaymentPlan
	if err := config.DB.Preload("Templates").Find(&plans).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch payment plans"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": plans})
}

// CreatePaymentPlanHandler создаёт форму оплаты вместе с шаблонами взносов.
func CreatePaymentPlanHandler(c *gin.Context) {
	var plan models.PaymentPlan
	if err := c.ShouldBindJSON(&plan); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	plan.InstallmentsCount = len(plan.Templates)

	if err := config.DB.Create(&plan).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create payment plan"})
		return
	}
	c.JSON(http.StatusCreated, plan)
}

// CreatePaymentInput - запрос на создание платежа для родителя.
type CreatePaymentInput struct {
	Amount        float64 `json:"amount" binding:"required"`
	PaymentPlanID *uint   `json:"paymentPlanId"`
	DueDate       string  `json:"dueDate"` // для разового платежа, YYYY-MM-DD
	Notes         string  `json:"notes"`
}

// CreatePaymentForParentHandler создаёт платеж: разовый или с планом рассрочки.
// При наличии плана сразу генерирует пакет взносов по формулам шаблона.
func CreatePaymentForParentHandler(c *gin.Context) {
	parentID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректный ID родителя"})
		return
	}

	var input CreatePaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var parent models.Parent
	if err := config.DB.First(&parent, parentID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Родитель не найден"})
		return
	}

	payment := models.Payment{
		ParentID: parent.ID,
		Amount:   input.Amount,
		Status:   models.PaymentStatusPending,
		Notes:    input.Notes,
	}

	if input.DueDate != "" {
		dueDate, err := time.Parse("2006-01-02", input.DueDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат даты. Ожидается YYYY-MM-DD."})
			return
		}
		payment.DueDate = &dueDate
	}

	if input.PaymentPlanID == nil {
		if err := config.DB.Create(&payment).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create payment"})
			return
		}
		c.JSON(http.StatusCreated, payment)
		return
	}

	var plan models.PaymentPlan
	if err := config.DB.Preload("Templates").First(&plan, *input.PaymentPlanID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Форма оплаты не найдена"})
		return
	}
	if len(plan.Templates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Форма оплаты пуста"})
		return
	}

	payment.PaymentPlanID = &plan.ID

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		installments, err := buildInstallments(&payment, &plan, time.Now())
		if err != nil {
			return err
		}
		return tx.Create(&installments).Error
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, payment)
}

// RegeneratePlanInput - запрос на перегенерацию взносов по другой форме оплаты.
type RegeneratePlanInput struct {
	PaymentPlanID uint `json:"paymentPlanId" binding:"required"`
}

// RegeneratePlanInstallmentsHandler заменяет план рассрочки существующего
// платежа. Допустимо только пока ни один взнос не оплачен: оплаченные
// взносы - финансовая история, её не перезаписываем.
func RegeneratePlanInstallmentsHandler(c *gin.Context) {
	paymentID := c.Param("id")

	var input RegeneratePlanInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не указана форма оплаты"})
		return
	}

	var payment models.Payment
	if err := config.DB.First(&payment, paymentID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Платеж не найден"})
		return
	}

	var plan models.PaymentPlan
	if err := config.DB.Preload("Templates").First(&plan, input.PaymentPlanID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Форма оплаты не найдена"})
		return
	}

	var paidCount int64
	config.DB.Model(&models.Installment{}).
		Where("payment_id = ? AND status = ?", payment.ID, models.PaymentStatusPaid).
		Count(&paidCount)
	if paidCount > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "По платежу уже есть оплаченные взносы, перегенерация запрещена"})
		return
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("payment_id = ?", payment.ID).Delete(&models.Installment{}).Error; err != nil {
			return err
		}

		installments, err := buildInstallments(&payment, &plan, time.Now())
		if err != nil {
			return err
		}
		if err := tx.Create(&installments).Error; err != nil {
			return err
		}

		return tx.Model(&payment).Update("payment_plan_id", plan.ID).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось перегенерировать план платежей: " + err.Error()})
		return
	}

	invalidateProgressCache(payment.ID)
	c.JSON(http.StatusOK, gin.H{"message": "План платежей успешно сгенерирован"})
}

// buildInstallments вычисляет пакет взносов по шаблонам формы оплаты.
// Формулы считаются через govaluate с параметром "Сумма".
func buildInstallments(payment *models.Payment, plan *models.PaymentPlan, startDate time.Time) ([]models.Installment, error) {
	parameters := make(map[string]interface{})
	parameters["Сумма"] = payment.Amount

	seasonYear := startDate.Year()
	installments := make([]models.Installment, 0, len(plan.Templates))

	for i, tmpl := range plan.Templates {
		expression, err := govaluate.NewEvaluableExpression(tmpl.Formula)
		if err != nil {
			return nil, fmt.Errorf("ошибка в формуле '%s': %v", tmpl.Formula, err)
		}

		result, err := expression.Evaluate(parameters)
		if err != nil {
			return nil, fmt.Errorf("не удалось вычислить формулу '%s': %v", tmpl.Formula, err)
		}

		amount, ok := result.(float64)
		if !ok {
			return nil, errors.New("результат формулы не является числом")
		}
		if amount < 0 {
			return nil, fmt.Errorf("формула '%s' дала отрицательную сумму", tmpl.Formula)
		}

		// Сезон в секциях идёт с сентября по май: месяцы до июня
		// относятся к следующему календарному году.
		monthIndex := getMonthIndex(tmpl.Month)
		dueMonth := time.Month(monthIndex + 1)
		year := seasonYear
		if dueMonth < time.June {
			year = seasonYear + 1
		}

		installments = append(installments, models.Installment{
			PaymentID: payment.ID,
			Number:    i + 1,
			Amount:    amount,
			DueDate:   time.Date(year, dueMonth, tmpl.Day, 0, 0, 0, 0, time.UTC),
			Status:    models.PaymentStatusPending,
		})
	}

	return installments, nil
}
