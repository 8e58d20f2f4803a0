package domain

import "errors"

var (
	ErrNoFiles           = errors.New("no files provided")
	ErrTooManyFiles      = errors.New("too many files (max 30)")
	ErrBatchTooLarge     = errors.New("total size exceeds 100MB")
	ErrMissingEntityType = errors.New("missing entity_type")
	ErrMissingEntityID   = errors.New("missing entity_id")
	ErrInvalidAccess     = errors.New("access must be public or private")
	ErrMissingKeys       = errors.New("missing or invalid file keys")
	ErrMissingKey        = errors.New("missing key parameter")

	ErrTransformFailed = errors.New("image processing failed")
	ErrStorageFailed   = errors.New("storage operation failed")
	ErrObjectNotFound  = errors.New("object not found")
	ErrDispatchFailed  = errors.New("downstream dispatch failed")
)
