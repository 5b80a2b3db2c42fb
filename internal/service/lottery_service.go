package service

import (
	"math/rand"

	"github.com/yourusername/spinwin-api/internal/domain/entity"
)

// Rand — источник случайности розыгрыша. Внедряется явно, чтобы тесты
// могли подставить детерминированную последовательность значений.
type Rand interface {
	// Float64 возвращает равномерное значение в [0, 1)
	Float64() float64
	// Intn возвращает равномерное значение в [0, n)
	Intn(n int) int
}

// systemRand — продовый источник на глобальном math/rand (потокобезопасен)
type systemRand struct{}

func (systemRand) Float64() float64 { return rand.Float64() }
func (systemRand) Intn(n int) int   { return rand.Intn(n) }

// LotteryResult — результат одного розыгрыша.
// PrizeID и PrizeName равны nil тогда и только тогда, когда Won == false.
// SegmentIndex — чисто презентационный индекс сектора колеса для анимации.
type LotteryResult struct {
	Won          bool
	PrizeID      *uint
	PrizeName    *string
	SegmentIndex int
}

// LotteryService определяет исход розыгрыша по набору призов кампании.
// Чистое вычисление: единственный побочный эффект — обращение к источнику
// случайности, поэтому одинаковые входы и одинаковые значения rng дают
// одинаковый результат.
type LotteryService struct {
	rng Rand
}

// NewLotteryService создает резолвер исходов. rng == nil → системный math/rand.
func NewLotteryService(rng Rand) *LotteryService {
	if rng == nil {
		rng = systemRand{}
	}
	return &LotteryService{rng: rng}
}

// DetermineOutcome разыгрывает один спин колеса.
//
// prizes — призы кампании в порядке sort_order; totalSegments == 2*len(prizes)
// (вызывающий код отвечает за согласованность с раскладкой колеса).
//
// Правила:
//   - исчерпанные призы пропускаются целиком: их вероятностная масса уходит
//     в "без выигрыша", а НЕ перераспределяется между оставшимися призами;
//   - проход по призам в исходном порядке с накоплением суммы вероятностей,
//     выигрывает первый приз, для которого r < cumulative (строгое сравнение,
//     границу r == cumulative забирает следующий приз);
//   - призовой сектор = 2 * индекс приза в исходном списке — сектор
//     исчерпанного приза остаётся на колесе, просто недостижим;
//   - без выигрыша — случайный нечётный сектор, индекс ничего не решает.
func (s *LotteryService) DetermineOutcome(prizes []entity.Prize, totalSegments int) LotteryResult {
	r := s.rng.Float64()
	cumulative := 0.0

	for i := range prizes {
		prize := &prizes[i]
		if !prize.IsAvailable() {
			continue
		}

		cumulative += prize.Probability
		if r < cumulative {
			prizeID := prize.ID
			prizeName := prize.Name
			return LotteryResult{
				Won:          true,
				PrizeID:      &prizeID,
				PrizeName:    &prizeName,
				SegmentIndex: i * 2,
			}
		}
	}

	// r попал в остаточную массу (включая массу исчерпанных призов) —
	// выбираем любой из нечётных секторов 1, 3, ..., totalSegments-1
	noWinCount := totalSegments / 2
	segmentIndex := s.rng.Intn(noWinCount)*2 + 1

	return LotteryResult{Won: false, SegmentIndex: segmentIndex}
}
