package blockstream

import "errors"

// ErrCompleted is returned by Push when called after Complete or Abort has
// already run. internal/apperror.FromBlockstream maps this to a
// VALIDATION_ERROR.
var ErrCompleted = errors.New("blockstream: stream already completed")
