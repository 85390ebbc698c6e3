package contract

import "errors"

var (
	ErrResultNotPending = errors.New("calc result is not pending")
	ErrDuplicateVersion = errors.New("snapshot version already exists")
)
