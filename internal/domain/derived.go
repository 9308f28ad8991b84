package domain

import "time"

// ValidationState is the state of the order-parameter assembler.
type ValidationState string

const (
	// StateIdle means there is nothing to validate yet (empty draft).
	StateIdle ValidationState = "idle"
	// StatePending means an external readout (USD price, balance) has not
	// resolved yet; submission is blocked but no error is shown.
	StatePending ValidationState = "pending"
	// StateValid means the submission tuple is ready.
	StateValid ValidationState = "valid"
	// StateInvalid means a validation check failed; see Invalid reason.
	StateInvalid ValidationState = "invalid"
)

// ValidationError identifies the first failing validation check.
type ValidationError string

const (
	ErrorInvalidTokens     ValidationError = "invalidTokens"
	ErrorEnterAmount       ValidationError = "enterAmount"
	ErrorInsufficientFunds ValidationError = "insufficientFunds"
	ErrorEnterTradeSize    ValidationError = "enterTradeSize"
	ErrorEnterMaxDuration  ValidationError = "enterMaxDuration"
	ErrorInsertLimitPrice  ValidationError = "insertLimitPrice"
	ErrorChunkUSDTooSmall  ValidationError = "invalidSmallestSrcChunkUsd"
	ErrorMinFillDelay      ValidationError = "minFillDelay"
	ErrorMaxFillDelay      ValidationError = "maxFillDelay"
)

// Warning is a non-blocking, informational flag that may coexist with a valid
// order.
type Warning string

const (
	// WarnPartialFill means the chosen duration cannot accommodate all chunks
	// at the configured fill delay.
	WarnPartialFill Warning = "partialFill"
	// WarnFeeOnTransfer means the source token appears to take a transfer fee,
	// so received chunk sizes may differ from the configured ones.
	WarnFeeOnTransfer Warning = "feeOnTransfer"
)

// SubmitParams is the exact tuple handed to the contract-call collaborator.
// Amounts are integer base-unit decimal strings.
type SubmitParams struct {
	Exchange             string    `json:"exchange"`
	SrcToken             string    `json:"src_token"`
	DstToken             string    `json:"dst_token"`
	SrcAmount            string    `json:"src_amount"`
	SrcChunkAmount       string    `json:"src_chunk_amount"`
	DstMinChunkAmountOut string    `json:"dst_min_chunk_amount_out"`
	Deadline             time.Time `json:"deadline"`
	FillDelaySeconds     int64     `json:"fill_delay_seconds"`
}

// DerivedOrder is the full derived-values record computed from one OrderDraft
// snapshot plus external readouts. All downstream consumers (API, submission
// flow) read this one shape.
type DerivedOrder struct {
	SrcAmount string `json:"src_amount"` // base units

	MaxChunks        int64  `json:"max_chunks"`
	Chunks           int64  `json:"chunks"`
	SrcChunkAmount   string `json:"src_chunk_amount"` // base units
	SrcChunkAmountUI string `json:"src_chunk_amount_ui"`
	SrcChunkUSD      string `json:"src_chunk_usd"`

	FillDelay time.Duration `json:"fill_delay_ns"`
	Duration  time.Duration `json:"duration_ns"`
	Deadline  time.Time     `json:"deadline"`

	// EstimatedChunkInterval is the protocol's own estimate of wall-clock time
	// between chunk executions (double the bid delay).
	EstimatedChunkInterval time.Duration `json:"estimated_chunk_interval_ns"`

	MarketPrice          string `json:"market_price,omitempty"`
	LimitPrice           string `json:"limit_price,omitempty"` // dst-per-src orientation
	DstMinChunkAmountOut string `json:"dst_min_chunk_amount_out"`
	DstAmountOutUI       string `json:"dst_amount_out_ui,omitempty"` // indicative total

	Warnings []Warning       `json:"warnings,omitempty"`
	State    ValidationState `json:"state"`
	Invalid  ValidationError `json:"invalid,omitempty"`

	// Submit is populated only when State == StateValid.
	Submit *SubmitParams `json:"submit,omitempty"`
}
