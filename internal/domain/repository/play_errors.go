package repository

import "errors"

var (
	// ErrAlreadyPlayed означает, что пара (кампания, email) уже сыграла.
	// Возвращается и из оптимистичной проверки, и при конфликте вставки (23505) —
	// снаружи эти два пути неразличимы намеренно.
	ErrAlreadyPlayed = errors.New("participant already played this campaign")
	// ErrPrizeExhausted означает, что лимит приза уже выбран и строгий инкремент отклонён.
	ErrPrizeExhausted = errors.New("prize quantity exhausted")
)
