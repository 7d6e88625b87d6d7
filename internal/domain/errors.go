package domain

import "errors"

var (
	ErrClientUnavailable  = errors.New("smart account client not available, reconnect and try again")
	ErrSessionClosed      = errors.New("session manager closed")
	ErrSessionInvalidated = errors.New("session invalidated by auth change")
	ErrNoOwnerWallet      = errors.New("no owner wallet is signed in")
	ErrClientIncomplete   = errors.New("smart account client is missing a required capability")
	ErrNoCalls            = errors.New("at least one call is required")
	ErrWalletNotFound     = errors.New("wallet not found")
	ErrContactNotFound    = errors.New("contact not found")
	ErrContactExists      = errors.New("contact already exists")
	ErrInvalidContactName = errors.New("invalid contact name")
	ErrRecurringNotFound  = errors.New("recurring payment not found")
	ErrHistoryNotFound    = errors.New("user operation not found in history")
	ErrInvalidAddress     = errors.New("invalid address")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidSchedule    = errors.New("invalid schedule")
	ErrSecretNotFound     = errors.New("secret not found")
)
