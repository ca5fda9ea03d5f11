package shared

// CommandType defines possible settlement command operations
type CommandType string

const (
	CommandRevenueAccrue    CommandType = "REVENUE_ACCRUE"
	CommandRevenueRecognize CommandType = "REVENUE_RECOGNIZE"
	CommandRevenueReverse   CommandType = "REVENUE_REVERSE"
	CommandPayoutCompensate CommandType = "PAYOUT_COMPENSATE"
)

// FailureReason defines settlement command failure categories
type FailureReason string

const (
	FailureReasonAccountNotFound    FailureReason = "ACCOUNT_NOT_FOUND"
	FailureReasonInvalidAmount      FailureReason = "INVALID_AMOUNT"
	FailureReasonInvalidRate        FailureReason = "INVALID_COMMISSION_RATE"
	FailureReasonInvariantViolation FailureReason = "BALANCE_INVARIANT_VIOLATION"
	FailureReasonCommitFailed       FailureReason = "SETTLEMENT_COMMIT_FAILED"
	FailureReasonUnknownError       FailureReason = "UNKNOWN_ERROR"
)

// OutboxStatus defines ledger event publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
