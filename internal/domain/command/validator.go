package command

import (
	"errors"
	"fmt"
)

// ErrValidationFailed wraps every validator rejection so callers can drop
// invalid commands uniformly at the boundary.
var ErrValidationFailed = errors.New("command validation failed")

// Validator performs structural and semantic checks on a single command
// before it is queued or sent. It is pure: the same command yields the same
// verdict on every peer, so peers never diverge on which commands exist.
type Validator struct {
	rules *RuleSet
}

// NewValidator creates a validator. rules may be nil when the match settings
// carry no admission rules.
func NewValidator(rules *RuleSet) *Validator {
	return &Validator{rules: rules}
}

// Validate checks cmd and returns an error wrapping ErrValidationFailed on
// rejection. Valid commands must be treated as immutable afterwards.
func (v *Validator) Validate(cmd Command) error {
	if cmd.ParticipantID == "" {
		return fmt.Errorf("%w: participantId is required", ErrValidationFailed)
	}
	if !Known(cmd.Type) {
		return fmt.Errorf("%w: unknown command type %q", ErrValidationFailed, cmd.Type)
	}
	if err := validatePayload(cmd); err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	if v.rules != nil {
		ok, err := v.rules.Admit(cmd)
		if err != nil {
			return fmt.Errorf("%w: admission rule error for %s: %v", ErrValidationFailed, cmd.Type, err)
		}
		if !ok {
			return fmt.Errorf("%w: admission rule rejected %s", ErrValidationFailed, cmd.Type)
		}
	}
	return nil
}

func validatePayload(cmd Command) error {
	switch p := cmd.Payload.(type) {
	case MoveUnitsPayload:
		if cmd.Type != TypeMoveUnits {
			return payloadMismatch(cmd.Type)
		}
		if len(p.UnitIDs) == 0 {
			return errors.New("move_units requires unitIds")
		}
	case BuildMirrorPayload:
		if cmd.Type != TypeBuildMirror {
			return payloadMismatch(cmd.Type)
		}
	case ProduceUnitPayload:
		if cmd.Type != TypeProduceUnit {
			return payloadMismatch(cmd.Type)
		}
		if p.UnitType == "" {
			return errors.New("produce_unit requires unitType")
		}
		if p.Qty < 1 {
			return errors.New("produce_unit requires qty >= 1")
		}
	case AttackTargetPayload:
		if cmd.Type != TypeAttackTarget {
			return payloadMismatch(cmd.Type)
		}
		if len(p.UnitIDs) == 0 {
			return errors.New("attack_target requires unitIds")
		}
		if p.TargetID == "" {
			return errors.New("attack_target requires targetId")
		}
	case SetRallyPayload:
		if cmd.Type != TypeSetRally {
			return payloadMismatch(cmd.Type)
		}
	case NoopPayload:
		if cmd.Type != TypeNoop {
			return payloadMismatch(cmd.Type)
		}
	case UnknownPayload:
		return fmt.Errorf("unrecognized payload for type %q", cmd.Type)
	default:
		return errors.New("payload is required")
	}
	return nil
}

func payloadMismatch(t Type) error {
	return fmt.Errorf("payload does not match command type %q", t)
}
