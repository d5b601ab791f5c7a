package protocol

import (
	"errors"
	"fmt"
	"testing"

	"voxelcraft.ai/customcontent/internal/content/errs"
)

func TestIsKnownCode(t *testing.T) {
	cases := []string{
		"",
		ErrProtoBadRequest,
		ErrWorldBusy,
		ErrWorldNotFound,
		ErrDisabled,
		ErrBadRequest,
		ErrUnknownID,
		ErrNotFound,
		ErrInvalidTarget,
		ErrPatternMismatch,
		ErrOverlap,
		ErrInternal,
	}
	for _, c := range cases {
		if !IsKnownCode(c) {
			t.Fatalf("expected known code: %q", c)
		}
	}
	if IsKnownCode("E_NOT_DEFINED") {
		t.Fatalf("expected unknown code rejected")
	}
}

func TestCodeFor(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("spawn: %w", errs.ErrUnknownWorld), ErrWorldNotFound},
		{fmt.Errorf("entity X: %w", errs.ErrNotFound), ErrUnknownID},
		{fmt.Errorf("place: %w", errs.ErrPatternMismatch), ErrPatternMismatch},
		{fmt.Errorf("place: %w", errs.ErrOverlapConflict), ErrOverlap},
		{fmt.Errorf("give: %w", errs.ErrInvalidTarget), ErrInvalidTarget},
		{errs.ErrConfiguration, ErrInternal},
		{errors.New("disk full"), ErrInternal},
	}
	for _, c := range cases {
		if got := CodeFor(c.err); got != c.want {
			t.Fatalf("CodeFor(%v)=%q want %q", c.err, got, c.want)
		}
		if !IsKnownCode(CodeFor(c.err)) {
			t.Fatalf("CodeFor(%v) produced unknown code", c.err)
		}
	}
}
