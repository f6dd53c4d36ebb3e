package fragment

import "errors"

// ErrInvalidArgument reports a caller error detected before any text is fetched.
var ErrInvalidArgument = errors.New("invalid argument")
