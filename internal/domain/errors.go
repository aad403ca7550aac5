package domain

import "errors"

var ErrRecordNotFound = errors.New("Record not found")
var ErrAccountNotFound = errors.New("Account not found")
var ErrDuplicateAddress = errors.New("Public address already in use")
var ErrInvalidAmount = errors.New("Amount must be greater than zero")
var ErrInsufficientFunds = errors.New("Insufficient funds")
var ErrLockContention = errors.New("Timed out waiting for account lock")
var ErrNotReversible = errors.New("Only completed transactions can be reversed")
var ErrAlreadyReversed = errors.New("Transaction has already been reversed")
