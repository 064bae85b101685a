package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals an absent market or position.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput signals a malformed request (missing wallet, unknown
	// outcome, missing required creation fields).
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidAmount signals a stake that is not a positive finite number.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrMarketNotTradable signals a trade against a market whose status is
	// not open.
	ErrMarketNotTradable = errors.New("market not tradable")

	// ErrMarketNotResolved signals a redemption against a market that has
	// not resolved.
	ErrMarketNotResolved = errors.New("market not resolved")

	// ErrMarketResolved signals a resolution attempt on an already resolved
	// market. Resolved is terminal.
	ErrMarketResolved = errors.New("market already resolved")

	// ErrNoPosition signals a redemption by a wallet with no position in
	// the market. An absent position is a NotFound condition, so the error
	// wraps ErrNotFound.
	ErrNoPosition = fmt.Errorf("%w: no position", ErrNotFound)

	// ErrAlreadyRedeemed signals a second redemption of the same position.
	ErrAlreadyRedeemed = errors.New("position already redeemed")

	// ErrLockHeld is returned when a distributed lock is already held.
	ErrLockHeld = errors.New("lock already held")
)
