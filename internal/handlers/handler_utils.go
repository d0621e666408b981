package handlers

import (
	"fmt"

	"atlant-crm/config"
)

// getMonthIndex - вспомогательная функция для преобразования названия месяца в его порядковый номер (0-11).
func getMonthIndex(monthStr string) int {
	months := map[string]int{
		"Январь": 0, "Февраль": 1, "Март": 2, "Апрель": 3, "Май": 4, "Июнь": 5,
		"Июль": 6, "Август": 7, "Сентябрь": 8, "Октябрь": 9, "Ноябрь": 10, "Декабрь": 11,
	}
	return months[monthStr]
}

// progressCacheKey - ключ кратковременного кэша сводки прогресса в Redis.
func progressCacheKey(paymentID uint) string {
	return fmt.Sprintf("payment:%d:progress", paymentID)
}

// invalidateProgressCache сбрасывает кэш сводки после любой мутации леджера.
func invalidateProgressCache(paymentID uint) {
	if config.RDB == nil {
		return
	}
	config.RDB.Del(config.Ctx, progressCacheKey(paymentID))
}
