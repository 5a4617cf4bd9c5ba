package models

import "errors"

var (
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrUnreadablePDF        = errors.New("unreadable pdf")
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	ErrStorage              = errors.New("storage error")
	ErrAnswerGeneration     = errors.New("answer generation failed")
	ErrFileNotFound         = errors.New("file not found")
)
