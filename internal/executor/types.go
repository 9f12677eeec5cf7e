// Package executor turns an order intent into a persisted venue order:
// it runs the safety gate, picks or builds the venue client for the
// (principal, venue) pair, places the order, and records the outcome.
package executor

import "errors"

var (
	// ErrDailyCapReached means the principal has used up their daily
	// trade allowance for this venue.
	ErrDailyCapReached = errors.New("executor: daily trade cap reached")
	// ErrConsecutiveLossCapReached means the principal's loss streak on
	// this venue has hit the configured ceiling.
	ErrConsecutiveLossCapReached = errors.New("executor: consecutive loss cap reached")
	// ErrPositionTooLarge means the order's notional exceeds the
	// configured share of the principal's total wallet balance.
	ErrPositionTooLarge = errors.New("executor: position size exceeds configured limit")
	// ErrNoKeys means no API key pair is on file for this (principal, venue).
	ErrNoKeys = errors.New("executor: no venue keys on file")
	// ErrUnsupportedVenue means the factory has no client for this venue string.
	ErrUnsupportedVenue = errors.New("executor: unsupported venue")
)

// maxErrorLen bounds how much of a venue error message gets persisted
// on a failed order row.
const maxErrorLen = 500

// Params is one order intent, whether placed manually from the API or
// by the auto-trade scheduler.
type Params struct {
	UserID     string
	Venue      string
	Symbol     string
	Side       string // buy | sell
	Type       string // market | limit
	Quantity   float64
	Price      float64 // required for limit, advisory for market safety math
	Source     string  // manual | auto
	AiSignalID string
}
