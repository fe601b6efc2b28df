package domain

import "fmt"

// ErrorCode identifies one failure class in the marketplace error taxonomy.
// Codes are stable and machine-readable; handlers map them to HTTP statuses.
type ErrorCode string

const (
	// Validation failures.
	CodeFieldTooLong    ErrorCode = "field_too_long"
	CodeInvalidPrice    ErrorCode = "invalid_price"
	CodeInvalidMode     ErrorCode = "invalid_listing_mode"
	CodeInvalidDuration ErrorCode = "invalid_duration"
	CodeInvalidAmount   ErrorCode = "invalid_amount"
	CodeInvalidFee      ErrorCode = "invalid_fee"
	CodeBidTooLow       ErrorCode = "bid_too_low"

	// State failures.
	CodeAlreadyInitialized ErrorCode = "already_initialized"
	CodeNotFound           ErrorCode = "not_found"
	CodeAlreadyListed      ErrorCode = "already_listed"
	CodeNotListed          ErrorCode = "not_listed"
	CodeAuctionEnded       ErrorCode = "auction_ended"
	CodeAuctionNotEnded    ErrorCode = "auction_not_ended"
	CodeEscrowCompleted    ErrorCode = "escrow_completed"
	CodeConflict           ErrorCode = "conflict"

	// Authorization failures.
	CodeUnauthorized ErrorCode = "unauthorized"
	CodeNotOwner     ErrorCode = "not_owner"
	CodeSelfTrade    ErrorCode = "self_trade"

	// Arithmetic failures.
	CodeInsufficientFunds ErrorCode = "insufficient_funds"
	CodeOverflow          ErrorCode = "arithmetic_overflow"
)

// Error is a typed marketplace failure. Field and Limit carry structured
// context for validation failures (which field, which bound); both are zero
// for state and authorization errors.
type Error struct {
	Code  ErrorCode
	Field string
	Limit uint64
	msg   string
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Field != "" && e.Limit > 0:
		return fmt.Sprintf("%s: %s (max %d)", e.msg, e.Field, e.Limit)
	case e.Field != "":
		return fmt.Sprintf("%s: %s", e.msg, e.Field)
	case e.Limit > 0:
		return fmt.Sprintf("%s (minimum %d)", e.msg, e.Limit)
	default:
		return e.msg
	}
}

// Is matches any *Error carrying the same code, so errors.Is works against the
// package sentinels regardless of attached context.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newError(code ErrorCode, msg string) *Error {
	return &Error{Code: code, msg: msg}
}

var (
	ErrFieldTooLong    = newError(CodeFieldTooLong, "field too long")
	ErrInvalidPrice    = newError(CodeInvalidPrice, "invalid price")
	ErrInvalidMode     = newError(CodeInvalidMode, "invalid listing mode")
	ErrInvalidDuration = newError(CodeInvalidDuration, "invalid auction duration")
	ErrInvalidAmount   = newError(CodeInvalidAmount, "invalid amount")
	ErrInvalidFee      = newError(CodeInvalidFee, "invalid platform fee")
	ErrBidTooLow       = newError(CodeBidTooLow, "bid amount too low")

	ErrAlreadyInitialized = newError(CodeAlreadyInitialized, "marketplace already initialized")
	ErrNotFound           = newError(CodeNotFound, "not found")
	ErrAlreadyListed      = newError(CodeAlreadyListed, "property already listed")
	ErrNotListed          = newError(CodeNotListed, "property not listed")
	ErrAuctionEnded       = newError(CodeAuctionEnded, "auction already ended")
	ErrAuctionNotEnded    = newError(CodeAuctionNotEnded, "auction not ended yet")
	ErrEscrowCompleted    = newError(CodeEscrowCompleted, "escrow already completed")
	ErrConflict           = newError(CodeConflict, "conflicting record exists")
	ErrAuctionActive      = newError(CodeConflict, "property already has an open auction")
	ErrLockHeld           = newError(CodeConflict, "entity lock already held")

	ErrUnauthorized = newError(CodeUnauthorized, "unauthorized")
	ErrNotOwner     = newError(CodeNotOwner, "caller is not the property owner")
	ErrSelfTrade    = newError(CodeSelfTrade, "caller cannot trade with themselves")

	ErrInsufficientFunds = newError(CodeInsufficientFunds, "insufficient funds")
	ErrOverflow          = newError(CodeOverflow, "arithmetic overflow")
)

// FieldTooLong builds a validation error naming the offending field and the
// violated length bound.
func FieldTooLong(field string, max int) *Error {
	return &Error{Code: CodeFieldTooLong, Field: field, Limit: uint64(max), msg: "field too long"}
}

// BidTooLow builds a rejection carrying the minimum acceptable bid.
func BidTooLow(min uint64) *Error {
	return &Error{Code: CodeBidTooLow, Limit: min, msg: "bid amount too low"}
}

// PriceTooLow builds a rejection carrying the minimum acceptable listing price.
func PriceTooLow(min uint64) *Error {
	return &Error{Code: CodeInvalidPrice, Limit: min, msg: "listing price too low"}
}
