package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualPaymentNoteRoundTrip(t *testing.T) {
	rec := ManualPaymentRecord{
		Method:  "cash",
		Note:    "принято на тренировке",
		Actor:   "petrova",
		At:      time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC),
		Receipt: "a1b2c3",
	}

	encoded := EncodeManualPaymentNote(rec)
	parsed := ParseManualPaymentNote(encoded)

	require.NotNil(t, parsed)
	assert.Equal(t, rec, *parsed)
}

func TestParseManualPaymentNoteLegacyPlainText(t *testing.T) {
	// Старые записи хранили заметки простым текстом - это не ошибка
	assert.Nil(t, ParseManualPaymentNote("оплата наличными у администратора"))
	assert.Nil(t, ParseManualPaymentNote(""))
	assert.Nil(t, ParseManualPaymentNote("   "))
}

func TestParseManualPaymentNoteBrokenJSON(t *testing.T) {
	assert.Nil(t, ParseManualPaymentNote("{not json"))
	// JSON без ключа manualPayment - тоже не запись о ручной оплате
	assert.Nil(t, ParseManualPaymentNote(`{"something":"else"}`))
}
