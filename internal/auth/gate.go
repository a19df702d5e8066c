package auth

import (
	"strings"

	"github.com/qinshuxiang/server/internal/apperr"
)

// RequirementMode selects how a permission set must match.
type RequirementMode int

const (
	// ModeAny passes when at least one declared code is held. Default.
	ModeAny RequirementMode = iota
	// ModeAll passes only when every declared code is held.
	ModeAll
)

// Requirement declares the permission codes an endpoint demands.
type Requirement struct {
	Mode  RequirementMode
	Codes []string
}

// AnyOf builds a requirement satisfied by any one of the codes.
func AnyOf(codes ...string) Requirement {
	return Requirement{Mode: ModeAny, Codes: codes}
}

// AllOf builds a requirement satisfied only by the full set.
func AllOf(codes ...string) Requirement {
	return Requirement{Mode: ModeAll, Codes: codes}
}

// Require evaluates the claims' permission snapshot against the requirement.
// Absent claims fail Unauthenticated; an unmet requirement fails Forbidden.
// The gate is deliberately coarse: for own-vs-all permission pairs it only
// checks "has at least one"; scope narrowing happens downstream where the
// handler inspects which code is actually present.
func Require(claims *Claims, req Requirement) error {
	if claims == nil {
		return apperr.Unauthenticated("authentication required")
	}
	if len(req.Codes) == 0 {
		return nil
	}
	switch req.Mode {
	case ModeAll:
		for _, code := range req.Codes {
			if !claims.HasPermission(code) {
				return apperr.Forbidden("missing permission " + code)
			}
		}
		return nil
	default:
		for _, code := range req.Codes {
			if claims.HasPermission(code) {
				return nil
			}
		}
		return apperr.Forbidden("requires one of: " + strings.Join(req.Codes, ", "))
	}
}
