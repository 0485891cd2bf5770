package dispatch

import (
	"errors"

	"ca-send/pkg/amount"
)

// Failure causes. Every failed submission wraps exactly one of these.
var (
	ErrMissingParameter     = errors.New("missing params")
	ErrInvalidAmount        = amount.ErrInvalidAmount
	ErrInvalidRecipient     = errors.New("invalid recipient address")
	ErrAssetNotSupported    = errors.New("asset not supported")
	ErrChainSwitchRejected  = errors.New("chain switch rejected")
	ErrDispatchRejected     = errors.New("transfer rejected")
	ErrSubmissionInProgress = errors.New("a transfer is already in progress")
)
