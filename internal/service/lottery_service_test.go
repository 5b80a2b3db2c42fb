package service

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/spinwin-api/internal/domain/entity"
)

// ============================================================================
// Детерминированный источник случайности для тестов
// ============================================================================

// scriptedRand отдаёт заранее заданные значения по порядку
type scriptedRand struct {
	floats []float64
	ints   []int
}

func (r *scriptedRand) Float64() float64 {
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func (r *scriptedRand) Intn(n int) int {
	v := r.ints[0]
	r.ints = r.ints[1:]
	return v % n
}

func intPtr(v int) *int { return &v }

// makePrizes создаёт типовой набор призов: кофе 30%, скидка 20%
func makePrizes() []entity.Prize {
	return []entity.Prize{
		{ID: 10, Name: "Бесплатный кофе", Probability: 0.3, SortOrder: 0},
		{ID: 11, Name: "Скидка 10%", Probability: 0.2, SortOrder: 1},
	}
}

// ============================================================================
// Тесты для LotteryService
// ============================================================================

func TestLotteryService_DetermineOutcome_WinFirstPrize(t *testing.T) {
	// Arrange
	rng := &scriptedRand{floats: []float64{0.25}}
	lottery := NewLotteryService(rng)
	prizes := makePrizes()

	// Act
	result := lottery.DetermineOutcome(prizes, 4)

	// Assert
	require.True(t, result.Won, "r=0.25 < 0.3 — первый приз должен выиграть")
	require.NotNil(t, result.PrizeID)
	assert.Equal(t, uint(10), *result.PrizeID)
	assert.Equal(t, "Бесплатный кофе", *result.PrizeName)
	assert.Equal(t, 0, result.SegmentIndex, "Сектор первого приза — 2*0")
}

func TestLotteryService_DetermineOutcome_WinSecondPrize(t *testing.T) {
	// Arrange
	rng := &scriptedRand{floats: []float64{0.45}}
	lottery := NewLotteryService(rng)
	prizes := makePrizes()

	// Act
	result := lottery.DetermineOutcome(prizes, 4)

	// Assert
	require.True(t, result.Won, "r=0.45 < 0.3+0.2 — второй приз должен выиграть")
	assert.Equal(t, uint(11), *result.PrizeID)
	assert.Equal(t, 2, result.SegmentIndex, "Сектор второго приза — 2*1")
}

func TestLotteryService_DetermineOutcome_NoWin(t *testing.T) {
	// Arrange
	rng := &scriptedRand{floats: []float64{0.75}, ints: []int{1}}
	lottery := NewLotteryService(rng)
	prizes := makePrizes()

	// Act
	result := lottery.DetermineOutcome(prizes, 4)

	// Assert
	require.False(t, result.Won, "r=0.75 >= 0.5 — выигрыша нет")
	assert.Nil(t, result.PrizeID)
	assert.Nil(t, result.PrizeName)
	assert.Equal(t, 3, result.SegmentIndex, "Intn=1 -> сектор 1*2+1")
	assert.Equal(t, 1, result.SegmentIndex%2, "Пустой сектор всегда нечётный")
}

// Сравнение строгое: r, равный накопленной сумме, НЕ выигрывает текущий приз
func TestLotteryService_DetermineOutcome_StrictBoundary(t *testing.T) {
	// Arrange: r ровно на границе первого приза
	rng := &scriptedRand{floats: []float64{0.3}}
	lottery := NewLotteryService(rng)
	prizes := makePrizes()

	// Act
	result := lottery.DetermineOutcome(prizes, 4)

	// Assert: граница уходит следующему призу, а не первому
	require.True(t, result.Won)
	assert.Equal(t, uint(11), *result.PrizeID, "r=0.3 должен достаться второму призу")

	// Чуть ниже границы — выигрывает первый
	rng = &scriptedRand{floats: []float64{0.29999}}
	result = NewLotteryService(rng).DetermineOutcome(makePrizes(), 4)
	require.True(t, result.Won)
	assert.Equal(t, uint(10), *result.PrizeID)
}

// Масса исчерпанного приза не перераспределяется: она уходит в "без выигрыша"
func TestLotteryService_DetermineOutcome_ExhaustedMassGoesToNoWin(t *testing.T) {
	// Arrange: первый приз исчерпан (3 из 3 выданы)
	prizes := []entity.Prize{
		{ID: 10, Name: "Бесплатный кофе", Probability: 0.3, TotalQuantity: intPtr(3), AwardedCount: 3},
		{ID: 11, Name: "Скидка 10%", Probability: 0.3},
	}
	// r=0.4: при полном наборе выиграл бы второй приз (0.4 < 0.6),
	// но доступная масса теперь только 0.3
	rng := &scriptedRand{floats: []float64{0.4}, ints: []int{0}}
	lottery := NewLotteryService(rng)

	// Act
	result := lottery.DetermineOutcome(prizes, 4)

	// Assert
	assert.False(t, result.Won, "Масса исчерпанного приза должна уйти в проигрыш")
}

// Сектор выигравшего приза считается по исходному списку, включая исчерпанные
func TestLotteryService_DetermineOutcome_SegmentIndexSkipsExhausted(t *testing.T) {
	// Arrange: первый приз исчерпан, выигрывает второй
	prizes := []entity.Prize{
		{ID: 10, Name: "Бесплатный кофе", Probability: 0.3, TotalQuantity: intPtr(1), AwardedCount: 1},
		{ID: 11, Name: "Скидка 10%", Probability: 0.3},
	}
	rng := &scriptedRand{floats: []float64{0.1}}
	lottery := NewLotteryService(rng)

	// Act
	result := lottery.DetermineOutcome(prizes, 4)

	// Assert: выигрыш второго приза, но сектор — его собственный (2*1),
	// сектор исчерпанного приза остаётся на колесе недостижимым
	require.True(t, result.Won)
	assert.Equal(t, uint(11), *result.PrizeID)
	assert.Equal(t, 2, result.SegmentIndex)
}

func TestLotteryService_DetermineOutcome_AllExhausted(t *testing.T) {
	// Arrange: оба приза исчерпаны
	prizes := []entity.Prize{
		{ID: 10, Name: "Бесплатный кофе", Probability: 0.5, TotalQuantity: intPtr(1), AwardedCount: 1},
		{ID: 11, Name: "Скидка 10%", Probability: 0.5, TotalQuantity: intPtr(2), AwardedCount: 2},
	}
	rng := &scriptedRand{floats: []float64{0.0}, ints: []int{0}}
	lottery := NewLotteryService(rng)

	// Act
	result := lottery.DetermineOutcome(prizes, 4)

	// Assert: даже r=0 не может выиграть — доступной массы нет
	assert.False(t, result.Won)
	assert.Equal(t, 1, result.SegmentIndex)
}

// Частотный тест на реальном math/rand: каждый приз выигрывает
// пропорционально своей вероятности, а не только суммарная доля
func TestLotteryService_DetermineOutcome_Frequency(t *testing.T) {
	// Arrange
	lottery := NewLotteryService(rand.New(rand.NewSource(42)))
	prizes := makePrizes() // кофе 0.3, скидка 0.2

	// Act
	const trials = 20000
	wins := 0
	winsByPrize := make(map[uint]int)
	for i := 0; i < trials; i++ {
		result := lottery.DetermineOutcome(prizes, 4)
		if result.Won {
			wins++
			winsByPrize[*result.PrizeID]++
		}
	}

	// Assert: доли сходятся к вероятностям +/- 0.02
	winRate := float64(wins) / float64(trials)
	assert.InDelta(t, 0.5, winRate, 0.02, "Суммарная доля выигрышей должна быть близка к 0.5, получено %f", winRate)

	coffeeRate := float64(winsByPrize[10]) / float64(trials)
	discountRate := float64(winsByPrize[11]) / float64(trials)
	assert.InDelta(t, 0.3, coffeeRate, 0.02, "Доля первого приза должна быть близка к 0.3, получено %f", coffeeRate)
	assert.InDelta(t, 0.2, discountRate, 0.02, "Доля второго приза должна быть близка к 0.2, получено %f", discountRate)
}
