package model

import "errors"

var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrFormNotAvailable = errors.New("form not available")
	ErrDeliveryFailed   = errors.New("delivery failed")
)
