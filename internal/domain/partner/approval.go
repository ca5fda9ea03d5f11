package partner

import "errors"

// ErrUnknownApprovalMode indicates a mode outside the closed enumeration
var ErrUnknownApprovalMode = errors.New("unknown approval mode")

// Decision is the outcome of the vehicle approval policy
type Decision string

const (
	DecisionAutoApprove   Decision = "AUTO_APPROVE"
	DecisionRequireReview Decision = "REQUIRE_REVIEW"
)

// Decide routes a newly listed vehicle through the partner's approval policy.
// AUTO always activates, MANUAL always queues for review, and DYNAMIC queues
// for review when the risk score meets the threshold: a threshold of 0 is
// effectively AUTO for all but flagged vehicles, 100 effectively MANUAL.
// Computing the risk score is an external collaborator's concern.
func Decide(vehicleRiskScore int, mode ApprovalMode, threshold int) (Decision, error) {
	switch mode {
	case ApprovalAuto:
		return DecisionAutoApprove, nil
	case ApprovalManual:
		return DecisionRequireReview, nil
	case ApprovalDynamic:
		if threshold < 0 || threshold > 100 {
			return "", ErrInvalidThreshold{Threshold: threshold}
		}
		if vehicleRiskScore >= threshold {
			return DecisionRequireReview, nil
		}
		return DecisionAutoApprove, nil
	}
	return "", ErrUnknownApprovalMode
}
