package payments

import (
	"testing"
	"time"

	"atlant-crm/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inst(number int, amount float64, due time.Time, status string) models.Installment {
	i := models.Installment{
		Number:  number,
		Amount:  amount,
		DueDate: due,
		Status:  status,
	}
	if status == models.PaymentStatusPaid {
		paidAt := due
		i.PaidAt = &paidAt
	}
	return i
}

func TestComputeProgressEmpty(t *testing.T) {
	snap := ComputeProgress(nil, time.Now())

	assert.Equal(t, 0, snap.TotalInstallments)
	assert.Equal(t, 0, snap.ProgressPercentage)
	assert.Equal(t, 0.0, snap.TotalAmount)
	assert.Nil(t, snap.NextDue)
}

func TestComputeProgressAggregates(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	past := now.AddDate(0, -1, 0)
	future := now.AddDate(0, 1, 0)

	installments := []models.Installment{
		inst(1, 100, past.AddDate(0, -1, 0), models.PaymentStatusPaid),
		inst(2, 50, past, models.PaymentStatusPending),
		inst(3, 50, future, models.PaymentStatusPending),
	}

	snap := ComputeProgress(installments, now)

	assert.Equal(t, 3, snap.TotalInstallments)
	assert.Equal(t, 1, snap.PaidInstallments)
	assert.Equal(t, 1, snap.OverdueInstallments)
	assert.Equal(t, 200.0, snap.TotalAmount)
	assert.Equal(t, 100.0, snap.PaidAmount)
	assert.Equal(t, 100.0, snap.RemainingAmount)
	assert.Equal(t, 50, snap.ProgressPercentage)

	require.NotNil(t, snap.NextDue)
	assert.Equal(t, 2, snap.NextDue.Number)
}

func TestComputeProgressInvariant(t *testing.T) {
	// paidAmount + remainingAmount == totalAmount для любого среза
	now := time.Now()
	cases := [][]models.Installment{
		nil,
		{inst(1, 33.34, now, models.PaymentStatusPaid)},
		{
			inst(1, 33.33, now.AddDate(0, -2, 0), models.PaymentStatusPaid),
			inst(2, 33.33, now.AddDate(0, -1, 0), models.PaymentStatusPaid),
			inst(3, 33.34, now.AddDate(0, 1, 0), models.PaymentStatusPending),
		},
		{
			inst(1, 75, now.AddDate(0, -1, 0), models.PaymentStatusFailed),
			inst(2, 25, now.AddDate(0, 1, 0), models.PaymentStatusPending),
		},
	}

	for _, installments := range cases {
		snap := ComputeProgress(installments, now)
		assert.InDelta(t, snap.TotalAmount, snap.PaidAmount+snap.RemainingAmount, 0.005)
	}
}

func TestComputeProgressRounding(t *testing.T) {
	now := time.Now()
	installments := []models.Installment{
		inst(1, 100, now, models.PaymentStatusPaid),
		inst(2, 100, now, models.PaymentStatusPending),
		inst(3, 100, now.AddDate(0, 1, 0), models.PaymentStatusPending),
	}

	snap := ComputeProgress(installments, now)
	// 100/300 -> 33.33..., округляем до 33
	assert.Equal(t, 33, snap.ProgressPercentage)
}

func TestComputeProgressFailedNotCounted(t *testing.T) {
	now := time.Now()
	installments := []models.Installment{
		inst(1, 50, now.AddDate(0, -1, 0), models.PaymentStatusFailed),
	}

	snap := ComputeProgress(installments, now)

	// failed - не pending: в просрочку и в nextDue не попадает
	assert.Equal(t, 0, snap.OverdueInstallments)
	assert.Nil(t, snap.NextDue)
	assert.Equal(t, 50.0, snap.RemainingAmount)
}
