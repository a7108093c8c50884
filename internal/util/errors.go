package util

import "errors"

var (
	ErrRateLimited       = errors.New("source is rate limiting requests")
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrNoUsableContent   = errors.New("no usable text content")
	ErrEmptyCorpus       = errors.New("no papers ingested yet")
	ErrNoExtractableText = errors.New("no extractable text found in PDF")
)
