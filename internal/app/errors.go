package app

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNoText       = errors.New("no text could be extracted from the document")
	ErrIngestion    = errors.New("ingestion failed")
	ErrGeneration   = errors.New("generation failed")
)
