package dto

// PlayResponse представляет результат игры для ответа клиенту.
// SegmentIndex указывает сектор колеса, на котором должна остановиться
// анимация: чётный — призовой, нечётный — пустой.
type PlayResponse struct {
	Won           bool    `json:"won"`
	PrizeName     *string `json:"prize_name"`
	SegmentIndex  int     `json:"segment_index"`
	TotalSegments int     `json:"total_segments"`
}
