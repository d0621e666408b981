// atlant-crm/internal/handlers/overdue_handler.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"atlant-crm/config"
	"atlant-crm/internal/payments"
	"atlant-crm/models"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// OverdueListItem - строка отчёта по должникам.
// Сумма и дата описывают просроченный хвост, а не весь остаток долга.
type OverdueListItem struct {
	PaymentID      uint      `json:"paymentId"`
	ParentFullName string    `json:"parentFullName"`
	ParentPhone    string    `json:"parentPhone"`
	Amount         float64   `json:"representativeAmount"`
	DueDate        time.Time `json:"representativeDueDate"`
	DaysPastDue    int       `json:"daysPastDue"`
}

// overdueCandidates - базовый запрос кандидатов в должники.
func overdueCandidates(search string) *gorm.DB {
	query := config.DB.Model(&models.Payment{}).
		Preload("Parent").
		Where("payments.status NOT IN ?", []string{models.PaymentStatusPaid, models.PaymentStatusCancelled})

	if search != "" {
		searchPattern := "%" + strings.ToLower(search) + "%"
		query = query.
			Joins("LEFT JOIN parents p ON p.id = payments.parent_id").
			Where("LOWER(p.last_name) LIKE ? OR LOWER(p.first_name) LIKE ? OR LOWER(p.phone) LIKE ?",
				searchPattern, searchPattern, searchPattern)
	}
	return query
}

// classifyPage прогоняет страницу платежей через классификатор просрочки.
// Ошибка загрузки взносов одного платежа не роняет весь список: классификатор
// деградирует до правила по собственным полям платежа.
func classifyPage(pagePayments []models.Payment, now time.Time) []OverdueListItem {
	ledger := payments.NewLedger(config.DB)
	items := make([]OverdueListItem, 0)

	for i := range pagePayments {
		p := &pagePayments[i]

		var installments []models.Installment
		var loadErr error
		if p.PaymentPlanID != nil {
			installments, loadErr = ledger.ListInstallments(p.ID)
		}

		info := payments.ClassifyOverdue(p, installments, loadErr, now)
		if !info.Overdue {
			continue
		}

		item := OverdueListItem{
			PaymentID:   p.ID,
			Amount:      info.Amount,
			DueDate:     info.DueDate,
			DaysPastDue: info.DaysPastDue,
		}
		if p.Parent != nil {
			item.ParentFullName = strings.TrimSpace(p.Parent.LastName + " " + p.Parent.FirstName)
			item.ParentPhone = p.Parent.Phone
		}
		items = append(items, item)
	}
	return items
}

// ListOverduePaymentsHandler возвращает пагинированный список должников.
func ListOverduePaymentsHandler(c *gin.Context) {
	query := overdueCandidates(c.Query("search"))

	var totalRows int64
	if err := query.Count(&totalRows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count payments"})
		return
	}

	var pagePayments []models.Payment
	if err := query.Scopes(Paginate(c)).Order("payments.id ASC").Find(&pagePayments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch payments"})
		return
	}

	items := classifyPage(pagePayments, time.Now())
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, items, totalRows))
}

// ExportOverduePaymentsHandler - экспорт списка должников в Excel.
func ExportOverduePaymentsHandler(c *gin.Context) {
	var allPayments []models.Payment
	if err := overdueCandidates(c.Query("search")).Order("payments.id ASC").Find(&allPayments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch data for export"})
		return
	}

	items := classifyPage(allPayments, time.Now())

	f := excelize.NewFile()
	sheetName := "Должники"
	index, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"ID платежа", "ФИО родителя", "Телефон", "Просроченная сумма", "Дата пропуска", "Дней просрочки"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	for i, item := range items {
		row := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), item.PaymentID)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), item.ParentFullName)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), item.ParentPhone)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), item.Amount)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), item.DueDate.Format("02.01.2006"))
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), item.DaysPastDue)
	}

	fileName := fmt.Sprintf("overdue_payments_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+fileName)
	if err := f.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write Excel file"})
	}
}

// RemindPaymentHandler фиксирует отправку напоминания должнику.
// Саму доставку (email/SMS) выполняет внешний сервис; здесь только
// счётчик, метка времени и данные для текста напоминания.
func RemindPaymentHandler(c *gin.Context) {
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

	now := time.Now()
	ledger := payments.NewLedger(config.DB)

	var installments []models.Installment
	var loadErr error
	if payment.PaymentPlanID != nil {
		installments, loadErr = ledger.ListInstallments(payment.ID)
	}
	info := payments.ClassifyOverdue(&payment, installments, loadErr, now)
	if !info.Overdue {
		c.JSON(http.StatusConflict, gin.H{"error": "Платеж не просрочен, напоминание не требуется"})
		return
	}

	payment.RemindersSent++
	payment.LastReminderAt = &now
	if err := config.DB.Model(&payment).
		Updates(map[string]interface{}{"reminders_sent": payment.RemindersSent, "last_reminder_at": now}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось обновить счётчик напоминаний"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"remindersSent":         payment.RemindersSent,
		"representativeAmount":  info.Amount,
		"representativeDueDate": info.DueDate,
		"daysPastDue":           info.DaysPastDue,
	})
}
