package dedupe

import "errors"

// ErrInFlight reports a retry of a submission whose first attempt has not
// settled yet.
var ErrInFlight = errors.New("submission with this idempotency key is still in progress")
