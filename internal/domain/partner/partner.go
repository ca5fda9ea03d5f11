package partner

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrEmptyName           = errors.New("partner name cannot be empty")
	ErrNegativeFleetSize   = errors.New("fleet size cannot be negative")
	ErrInvalidRate         = errors.New("commission rate must be between 0 and 10000 basis points")
	ErrMissingChangeReason = errors.New("commission change requires a reason")
)

// ErrInvalidThreshold indicates an approval threshold outside [0,100]
type ErrInvalidThreshold struct {
	Threshold int
}

func (e ErrInvalidThreshold) Error() string {
	return fmt.Sprintf("approval threshold must be within [0,100], got %d", e.Threshold)
}

// ErrPartnerNotFound indicates a missing partner
type ErrPartnerNotFound struct {
	PartnerID uuid.UUID
}

func (e ErrPartnerNotFound) Error() string {
	return "partner not found: " + e.PartnerID.String()
}

// ErrStalePartner indicates an optimistic lock failure on a partner record
type ErrStalePartner struct {
	PartnerID uuid.UUID
}

func (e ErrStalePartner) Error() string {
	return "stale partner state detected for partner: " + e.PartnerID.String()
}

// ApprovalMode controls how newly listed vehicles are activated
type ApprovalMode string

const (
	ApprovalAuto    ApprovalMode = "AUTO"
	ApprovalManual  ApprovalMode = "MANUAL"
	ApprovalDynamic ApprovalMode = "DYNAMIC"
)

// ParseApprovalMode validates a raw approval mode string at the boundary
func ParseApprovalMode(raw string) (ApprovalMode, error) {
	switch m := ApprovalMode(raw); m {
	case ApprovalAuto, ApprovalManual, ApprovalDynamic:
		return m, nil
	}
	return "", fmt.Errorf("unknown approval mode: %q", raw)
}

// Partner represents a fleet partner. ActiveFleetSize is maintained by the
// fleet membership collaborator and is read-only here; the commission rate is
// derived from it except when an operator override pins it.
type Partner struct {
	ID                uuid.UUID    `json:"id"`
	Name              string       `json:"name"`
	ActiveFleetSize   int          `json:"active_fleet_size"`
	CommissionRateBps int32        `json:"commission_rate_bps"`
	RateOverridden    bool         `json:"rate_overridden"`
	OverrideTier      int          `json:"override_tier,omitempty"` // tier index the override was issued in
	ApprovalMode      ApprovalMode `json:"approval_mode"`
	ApprovalThreshold int          `json:"approval_threshold"` // meaningful only when DYNAMIC
	Version           int          `json:"version"`            // For optimistic locking
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// NewPartner creates a partner with the tier rate implied by its fleet size
func NewPartner(name string, fleetSize int) (*Partner, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if fleetSize < 0 {
		return nil, ErrNegativeFleetSize
	}

	now := time.Now()
	return &Partner{
		ID:                uuid.New(),
		Name:              name,
		ActiveFleetSize:   fleetSize,
		CommissionRateBps: RateForFleetSize(fleetSize),
		ApprovalMode:      ApprovalManual,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// SetApprovalMode updates the vehicle approval policy. The threshold is
// validated only for DYNAMIC mode, where it is meaningful.
func (p *Partner) SetApprovalMode(mode ApprovalMode, threshold int) error {
	if mode == ApprovalDynamic && (threshold < 0 || threshold > 100) {
		return ErrInvalidThreshold{Threshold: threshold}
	}

	p.ApprovalMode = mode
	p.ApprovalThreshold = threshold
	p.touch()
	return nil
}

// touch bumps the optimistic lock version after a successful mutation
func (p *Partner) touch() {
	p.Version++
	p.UpdatedAt = time.Now()
}
