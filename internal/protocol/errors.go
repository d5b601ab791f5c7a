package protocol

import (
	"errors"

	"voxelcraft.ai/customcontent/internal/content/errs"
)

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Server routing/state.
	ErrWorldBusy     = "E_WORLD_BUSY"
	ErrWorldNotFound = "E_WORLD_NOT_FOUND"
	ErrDisabled      = "E_DISABLED"

	// Content layer.
	ErrBadRequest      = "E_BAD_REQUEST"
	ErrUnknownID       = "E_UNKNOWN_ID"
	ErrNotFound        = "E_NOT_FOUND"
	ErrInvalidTarget   = "E_INVALID_TARGET"
	ErrPatternMismatch = "E_PATTERN_MISMATCH"
	ErrOverlap         = "E_OVERLAP"
	ErrInternal        = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrWorldBusy:       {},
	ErrWorldNotFound:   {},
	ErrDisabled:        {},
	ErrBadRequest:      {},
	ErrUnknownID:       {},
	ErrNotFound:        {},
	ErrInvalidTarget:   {},
	ErrPatternMismatch: {},
	ErrOverlap:         {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// CodeFor maps a content error to its stable code. nil maps to "".
func CodeFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, errs.ErrUnknownWorld):
		return ErrWorldNotFound
	case errors.Is(err, errs.ErrNotFound):
		return ErrUnknownID
	case errors.Is(err, errs.ErrPatternMismatch):
		return ErrPatternMismatch
	case errors.Is(err, errs.ErrOverlapConflict):
		return ErrOverlap
	case errors.Is(err, errs.ErrInvalidTarget):
		return ErrInvalidTarget
	default:
		return ErrInternal
	}
}
