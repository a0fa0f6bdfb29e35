package gateway

import "errors"

// errBodyTooLarge signals a request body exceeded limits.maxBodySize; the
// route layer maps it to a protocol-level 413 response (§4.12).
var errBodyTooLarge = errors.New("gateway: request body exceeds maxBodySize")
