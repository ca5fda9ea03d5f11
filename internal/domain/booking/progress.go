package booking

// StageState classifies one progress stage for presentation
type StageState string

const (
	StageComplete StageState = "complete"
	StageError    StageState = "error"
	StageActive   StageState = "active"
	StagePending  StageState = "pending"
)

// Stage is one entry in the derived progress view
type Stage struct {
	Name  string     `json:"name"`
	State StageState `json:"state"`
}

var stageNames = [5]string{"Booked", "Verified", "Confirmed", "Active", "Completed"}

// Progress derives the five-stage progress view from a status vector. It is
// purely presentational: nothing here may feed back into the state machine.
func Progress(v StatusVector) []Stage {
	complete := [5]bool{
		true, // a booking that exists has been booked
		v.Verification == VerificationApproved,
		v.Booking == StatusConfirmed || v.Booking == StatusActive ||
			v.Booking == StatusCompleted || v.Booking == StatusDisputeReview,
		v.Booking == StatusActive || v.Booking == StatusCompleted ||
			v.Booking == StatusDisputeReview,
		v.Booking == StatusCompleted || v.Booking == StatusDisputeReview,
	}
	failed := [5]bool{
		false,
		v.Verification == VerificationRejected || v.Verification == VerificationExpired,
		v.Booking == StatusNoShow,
		v.Booking == StatusNoShow,
		false,
	}
	if v.Payment == PaymentFailed {
		failed[0] = true
	}

	stages := make([]Stage, len(stageNames))
	activeAssigned := false
	for i, name := range stageNames {
		state := StagePending
		switch {
		case failed[i]:
			state = StageError
		case complete[i]:
			state = StageComplete
		case !activeAssigned:
			state = StageActive
			activeAssigned = true
		}
		stages[i] = Stage{Name: name, State: state}
	}
	return stages
}

// FillPercent maps a status vector to the fill of a linear progress
// indicator. The steps are fixed at 0, 12.5, 37.5, 62.5, 87.5 and 100.
func FillPercent(v StatusVector) float64 {
	switch {
	case v.Booking == StatusCompleted || v.Booking == StatusDisputeReview || v.Booking == StatusNoShow:
		return 100
	case v.Booking == StatusActive:
		return 87.5
	case v.Booking == StatusConfirmed:
		return 62.5
	case v.Verification == VerificationApproved || v.Booking == StatusOnHold:
		return 37.5
	case v.Payment == PaymentAuthorized || v.Payment == PaymentPaid:
		return 12.5
	default:
		return 0
	}
}
