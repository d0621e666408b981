package payments

import "errors"

// Ошибки леджера. Обработчики переводят их в HTTP-статусы:
// ErrInstallmentNotFound -> 404, ErrAlreadyPaid/ErrNotPaid -> 409.
var (
	ErrInstallmentNotFound = errors.New("взнос не найден")
	ErrAlreadyPaid         = errors.New("взнос уже оплачен")
	ErrNotPaid             = errors.New("взнос не оплачен, отменять нечего")
)
