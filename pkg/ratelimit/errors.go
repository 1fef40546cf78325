package ratelimit

import "errors"

var errTokenBudgetExceeded = errors.New("ratelimit: requested tokens exceed the configured burst budget")
