package payments

import (
	"testing"
	"time"

	"atlant-crm/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Parent{},
		&models.PaymentPlan{},
		&models.PlanInstallmentTemplate{},
		&models.Payment{},
		&models.Installment{},
	))
	return db
}

// seedPlanPayment создаёт платеж с планом и двумя взносами по 50:
// первый со сроком вчера, второй - через месяц.
func seedPlanPayment(t *testing.T, db *gorm.DB) (*models.Payment, []models.Installment) {
	t.Helper()

	parent := models.Parent{LastName: "Иванова", FirstName: "Анна"}
	require.NoError(t, db.Create(&parent).Error)

	plan := models.PaymentPlan{Name: "Два взноса", InstallmentsCount: 2}
	require.NoError(t, db.Create(&plan).Error)

	payment := models.Payment{
		ParentID:      parent.ID,
		PaymentPlanID: &plan.ID,
		Amount:        100,
		Status:        models.PaymentStatusPending,
	}
	require.NoError(t, db.Create(&payment).Error)

	now := time.Now()
	installments := []models.Installment{
		{PaymentID: payment.ID, Number: 1, Amount: 50, DueDate: now.AddDate(0, 0, -1), Status: models.PaymentStatusPending},
		{PaymentID: payment.ID, Number: 2, Amount: 50, DueDate: now.AddDate(0, 1, 0), Status: models.PaymentStatusPending},
	}
	require.NoError(t, db.Create(&installments).Error)
	return &payment, installments
}

func TestListInstallmentsOrdered(t *testing.T) {
	db := newTestDB(t)
	payment, _ := seedPlanPayment(t, db)

	// Перемешанный порядок вставки не должен влиять на выдачу
	extra := models.Installment{PaymentID: payment.ID, Number: 0, Amount: 10, DueDate: time.Now(), Status: models.PaymentStatusPending}
	require.NoError(t, db.Create(&extra).Error)

	ledger := NewLedger(db)
	list, err := ledger.ListInstallments(payment.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, 0, list[0].Number)
	assert.Equal(t, 1, list[1].Number)
	assert.Equal(t, 2, list[2].Number)
}

func TestListInstallmentsEmptyForSinglePayment(t *testing.T) {
	db := newTestDB(t)
	parent := models.Parent{LastName: "Петров", FirstName: "Олег"}
	require.NoError(t, db.Create(&parent).Error)
	payment := models.Payment{ParentID: parent.ID, Amount: 300, Status: models.PaymentStatusPending}
	require.NoError(t, db.Create(&payment).Error)

	ledger := NewLedger(db)
	list, err := ledger.ListInstallments(payment.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMarkPaidManual(t *testing.T) {
	db := newTestDB(t)
	_, installments := seedPlanPayment(t, db)
	ledger := NewLedger(db)

	paid, err := ledger.MarkPaid(installments[0].ID, &models.ManualPaymentRecord{
		Method: "cash",
		Actor:  "admin",
	})
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)

	rec := models.ParseManualPaymentNote(paid.Notes)
	require.NotNil(t, rec)
	assert.Equal(t, "cash", rec.Method)
	assert.Equal(t, "admin", rec.Actor)
	assert.False(t, rec.At.IsZero())

	// Мутация сразу видна следующему чтению
	list, err := ledger.ListInstallments(paid.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, list[0].Status)
	assert.Equal(t, models.PaymentStatusPending, list[1].Status)
}

func TestMarkPaidGatewayLeavesNotes(t *testing.T) {
	db := newTestDB(t)
	_, installments := seedPlanPayment(t, db)
	ledger := NewLedger(db)

	paid, err := ledger.MarkPaid(installments[0].ID, nil)
	require.NoError(t, err)
	assert.Empty(t, paid.Notes)
}

func TestMarkPaidAfterRevertKeepsPreviousRecord(t *testing.T) {
	db := newTestDB(t)
	_, installments := seedPlanPayment(t, db)
	ledger := NewLedger(db)

	_, err := ledger.MarkPaid(installments[0].ID, &models.ManualPaymentRecord{
		Method: "cash",
		Actor:  "admin",
		Note:   "принято в кассе",
	})
	require.NoError(t, err)

	_, err = ledger.MarkUnpaid(installments[0].ID)
	require.NoError(t, err)

	paid, err := ledger.MarkPaid(installments[0].ID, &models.ManualPaymentRecord{
		Method: "transfer",
		Actor:  "accountant",
	})
	require.NoError(t, err)

	// Исправление не стирает след первой отметки
	rec := models.ParseManualPaymentNote(paid.Notes)
	require.NotNil(t, rec)
	assert.Equal(t, "transfer", rec.Method)
	assert.Equal(t, "accountant", rec.Actor)
	assert.Contains(t, rec.Note, "ранее:")
	assert.Contains(t, rec.Note, "cash")
	assert.Contains(t, rec.Note, "admin")
	assert.Contains(t, rec.Note, "принято в кассе")
}

func TestMarkPaidIdempotent(t *testing.T) {
	db := newTestDB(t)
	_, installments := seedPlanPayment(t, db)
	ledger := NewLedger(db)

	first, err := ledger.MarkPaid(installments[0].ID, &models.ManualPaymentRecord{Method: "cash"})
	require.NoError(t, err)

	_, err = ledger.MarkPaid(installments[0].ID, &models.ManualPaymentRecord{Method: "cash"})
	assert.ErrorIs(t, err, ErrAlreadyPaid)

	// Повторная отметка ничего не изменила
	var stored models.Installment
	require.NoError(t, db.First(&stored, installments[0].ID).Error)
	assert.Equal(t, models.PaymentStatusPaid, stored.Status)
	require.NotNil(t, stored.PaidAt)
	assert.WithinDuration(t, *first.PaidAt, *stored.PaidAt, time.Second)
}

func TestMarkPaidNotFound(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db)

	_, err := ledger.MarkPaid(9999, nil)
	assert.ErrorIs(t, err, ErrInstallmentNotFound)
}

func TestMarkUnpaidRoundTrip(t *testing.T) {
	db := newTestDB(t)
	_, installments := seedPlanPayment(t, db)
	ledger := NewLedger(db)

	_, err := ledger.MarkPaid(installments[0].ID, &models.ManualPaymentRecord{Method: "cash"})
	require.NoError(t, err)

	reverted, err := ledger.MarkUnpaid(installments[0].ID)
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusPending, reverted.Status)
	assert.Nil(t, reverted.PaidAt)

	var stored models.Installment
	require.NoError(t, db.First(&stored, installments[0].ID).Error)
	assert.Equal(t, models.PaymentStatusPending, stored.Status)
	assert.Nil(t, stored.PaidAt)

	// Соседний взнос не затронут
	var other models.Installment
	require.NoError(t, db.First(&other, installments[1].ID).Error)
	assert.Equal(t, models.PaymentStatusPending, other.Status)
}

func TestMarkUnpaidRequiresPaid(t *testing.T) {
	db := newTestDB(t)
	_, installments := seedPlanPayment(t, db)
	ledger := NewLedger(db)

	_, err := ledger.MarkUnpaid(installments[0].ID)
	assert.ErrorIs(t, err, ErrNotPaid)
}

func TestMarkFailedDoesNotOverwritePaid(t *testing.T) {
	db := newTestDB(t)
	_, installments := seedPlanPayment(t, db)
	ledger := NewLedger(db)

	_, err := ledger.MarkPaid(installments[0].ID, nil)
	require.NoError(t, err)

	_, err = ledger.MarkFailed(installments[0].ID)
	assert.ErrorIs(t, err, ErrAlreadyPaid)

	failed, err := ledger.MarkFailed(installments[1].ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, failed.Status)
}

func TestPaymentStatusSync(t *testing.T) {
	db := newTestDB(t)
	payment, installments := seedPlanPayment(t, db)
	ledger := NewLedger(db)

	_, err := ledger.MarkPaid(installments[0].ID, nil)
	require.NoError(t, err)
	_, err = ledger.MarkPaid(installments[1].ID, nil)
	require.NoError(t, err)

	var stored models.Payment
	require.NoError(t, db.First(&stored, payment.ID).Error)
	assert.Equal(t, models.PaymentStatusPaid, stored.Status)
	assert.NotNil(t, stored.PaidAt)

	// Отмена одного взноса возвращает платеж в pending.
	// Читаем в свежую структуру: NULL из БД не перезаписывает
	// указатель, оставшийся с прошлого чтения.
	_, err = ledger.MarkUnpaid(installments[0].ID)
	require.NoError(t, err)

	var reverted models.Payment
	require.NoError(t, db.First(&reverted, payment.ID).Error)
	assert.Equal(t, models.PaymentStatusPending, reverted.Status)
	assert.Nil(t, reverted.PaidAt)
}

// Сквозной сценарий: два взноса по 50, первый просрочен. После ручной
// оплаты первого прогресс - 50%, и платеж больше не числится в должниках.
func TestEndToEndScenario(t *testing.T) {
	db := newTestDB(t)
	payment, installments := seedPlanPayment(t, db)
	ledger := NewLedger(db)
	now := time.Now()

	list, err := ledger.ListInstallments(payment.ID)
	require.NoError(t, err)

	var paymentRow models.Payment
	require.NoError(t, db.First(&paymentRow, payment.ID).Error)

	info := ClassifyOverdue(&paymentRow, list, nil, now)
	assert.True(t, info.Overdue)
	assert.Equal(t, 50.0, info.Amount)
	assert.Equal(t, 1, info.DaysPastDue)

	_, err = ledger.MarkPaid(installments[0].ID, &models.ManualPaymentRecord{Method: "cash", Actor: "director"})
	require.NoError(t, err)

	list, err = ledger.ListInstallments(payment.ID)
	require.NoError(t, err)

	snap := ComputeProgress(list, now)
	assert.Equal(t, 50.0, snap.PaidAmount)
	assert.Equal(t, 50.0, snap.RemainingAmount)
	assert.Equal(t, 50, snap.ProgressPercentage)
	assert.Equal(t, 1, snap.PaidInstallments)

	info = ClassifyOverdue(&paymentRow, list, nil, now)
	assert.False(t, info.Overdue)
}
