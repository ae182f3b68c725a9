package service

import "errors"

// Ошибки уровня домена. Слой выше (HTTP) сопоставляет их со статусами
// ответов, здесь только машинно-различимые виды.
var (
	ErrSlotNotAvailable     = errors.New("slot is not available")
	ErrConsultationNotFound = errors.New("consultation not found")
	ErrProviderNotFound     = errors.New("provider not found")
	ErrQuestionNotFound     = errors.New("question not found")
)
