package entity

import "errors"

var (
	ErrNotAuthenticated   = errors.New("terminal session is not authenticated")
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidAmount      = errors.New("amount must be a positive number of minor units")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientCash   = errors.New("insufficient cash in reservoir")
	ErrCompensationFailed = errors.New("compensating ledger credit failed")
	ErrTerminalNotFound   = errors.New("terminal not found")
)
