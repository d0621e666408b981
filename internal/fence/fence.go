// atlant-crm/internal/fence/fence.go
//
// Барьер согласованности чтений. После записи в леджер обработчик сам
// пересчитывает и возвращает сводку прогресса; независимое чтение сразу
// после этого может прийти с отстающей реплики и "откатить" картинку.
// Guard запоминает сигнатуру только что записанной сводки и отбрасывает
// свежепрочитанные сводки, которые ей не соответствуют, пока не придёт
// совпадающее чтение или не истечёт защитное окно.
//
// Это одноклиентская схема (один логический автор пишет и тут же читает),
// а не распределённый консенсус: двух параллельных авторов она между собой
// не упорядочивает.
package fence

import (
	"math"
	"sync"
	"time"

	"atlant-crm/internal/payments"
)

const (
	// DefaultWindow - защитное окно, после которого барьер сдаётся
	// и принимает любое чтение (fail open).
	DefaultWindow = 12 * time.Second

	// DefaultRetryDelay - пауза перед единственным повторным чтением
	// после несовпадения.
	DefaultRetryDelay = time.Second
)

// Signature - сигнатура сводки, по которой сверяются чтения.
type Signature struct {
	PaidAmount         float64
	ProgressPercentage int
	PaidInstallments   int
}

// SignatureOf снимает сигнатуру со сводки прогресса.
func SignatureOf(snap payments.ProgressSnapshot) Signature {
	return Signature{
		PaidAmount:         snap.PaidAmount,
		ProgressPercentage: snap.ProgressPercentage,
		PaidInstallments:   snap.PaidInstallments,
	}
}

func (s Signature) matches(other Signature) bool {
	return math.Abs(s.PaidAmount-other.PaidAmount) < 0.005 &&
		s.ProgressPercentage == other.ProgressPercentage &&
		s.PaidInstallments == other.PaidInstallments
}

// Result - решение барьера по предложенной сводке.
type Result struct {
	// Accepted - свежая сводка принята (совпала, окно истекло или барьер не взведён).
	Accepted bool
	// Snapshot - то, что следует показывать: принятая свежая сводка либо
	// последняя подтверждённая записью.
	Snapshot payments.ProgressSnapshot
	// RetryIn > 0 - чтение стоит повторить через указанную паузу.
	// Выдаётся не более одного раза за взведение.
	RetryIn time.Duration
}

// Guard - сам барьер. Потокобезопасен.
type Guard struct {
	mu         sync.Mutex
	expected   *Signature
	lastGood   payments.ProgressSnapshot
	deadline   time.Time
	retryUsed  bool
	window     time.Duration
	retryDelay time.Duration

	now   func() time.Time
	sleep func(time.Duration)
}

func NewGuard() *Guard {
	return &Guard{
		window:     DefaultWindow,
		retryDelay: DefaultRetryDelay,
		now:        time.Now,
		sleep:      time.Sleep,
	}
}

// Arm взводит барьер после успешной записи: snap - сводка, которую запись
// вернула синхронно. До совпадения или истечения окна именно она считается
// последней достоверной.
func (g *Guard) Arm(snap payments.ProgressSnapshot) {
	g.mu.Lock()
	defer g.mu.Unlock()

	sig := SignatureOf(snap)
	g.expected = &sig
	g.lastGood = snap
	g.deadline = g.now().Add(g.window)
	g.retryUsed = false
}

// Armed сообщает, ждёт ли барьер подтверждающего чтения.
func (g *Guard) Armed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.expected != nil
}

// Offer предлагает барьеру независимо прочитанную сводку.
func (g *Guard) Offer(snap payments.ProgressSnapshot) Result {
	g.mu.Lock()
	defer g.mu.Unlock()

	// Барьер не взведён - чтения принимаются без сверки
	if g.expected == nil {
		return Result{Accepted: true, Snapshot: snap}
	}

	// Окно истекло - сдаёмся и принимаем что есть, лишь бы не зависнуть
	if !g.now().Before(g.deadline) {
		g.expected = nil
		return Result{Accepted: true, Snapshot: snap}
	}

	if g.expected.matches(SignatureOf(snap)) {
		g.expected = nil
		return Result{Accepted: true, Snapshot: snap}
	}

	res := Result{Accepted: false, Snapshot: g.lastGood}
	if !g.retryUsed {
		g.retryUsed = true
		res.RetryIn = g.retryDelay
	}
	return res
}

// WaitFresh читает сводку через fetch до тех пор, пока барьер её не примет.
// Несовпавшее чтение повторяется один раз через retryDelay; если и после
// этого совпадения нет, ждём конца окна и принимаем следующее чтение
// безусловно. Ошибка fetch возвращается вызывающему как есть.
func (g *Guard) WaitFresh(fetch func() (payments.ProgressSnapshot, error)) (payments.ProgressSnapshot, error) {
	for {
		snap, err := fetch()
		if err != nil {
			return payments.ProgressSnapshot{}, err
		}

		res := g.Offer(snap)
		if res.Accepted {
			return res.Snapshot, nil
		}

		if res.RetryIn > 0 {
			g.sleep(res.RetryIn)
			continue
		}

		// Повтор уже израсходован: досыпаем до конца окна, следующее
		// предложение пройдёт по ветке fail open
		g.mu.Lock()
		remaining := g.deadline.Sub(g.now())
		g.mu.Unlock()
		if remaining > 0 {
			g.sleep(remaining)
		}
	}
}
