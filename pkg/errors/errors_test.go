package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestAppErrorMessage(t *testing.T) {
	err := Conflict("room is occupied")
	if err.Error() != "CONFLICT: room is occupied" {
		t.Errorf("unexpected message: %s", err.Error())
	}

	wrapped := Internal("store write failed", errors.New("disk full"))
	if wrapped.Error() != "INTERNAL_ERROR: store write failed (caused by: disk full)" {
		t.Errorf("unexpected wrapped message: %s", wrapped.Error())
	}
	if !errors.Is(wrapped, wrapped.Err) {
		t.Error("Unwrap chain broken")
	}
}

func TestConstructorsCarryHTTPStatus(t *testing.T) {
	cases := []struct {
		err    *AppError
		code   string
		status int
	}{
		{NotFound("Room"), CodeNotFound, http.StatusNotFound},
		{Unauthenticated("no identity"), CodeUnauthenticated, http.StatusUnauthorized},
		{ProofMismatch("r1"), CodeProofMismatch, http.StatusBadRequest},
		{Conflict("occupied"), CodeConflict, http.StatusConflict},
		{Expired("session expired"), CodeExpired, http.StatusBadRequest},
		{InvalidInput("bad duration"), CodeInvalidInput, http.StatusBadRequest},
		{Validation("invalid body", nil), CodeValidation, http.StatusBadRequest},
	}

	for _, tc := range cases {
		if tc.err.Code != tc.code {
			t.Errorf("expected code %s, got %s", tc.code, tc.err.Code)
		}
		if tc.err.StatusCode() != tc.status {
			t.Errorf("%s: expected status %d, got %d", tc.code, tc.status, tc.err.StatusCode())
		}
	}
}

func TestHasCode(t *testing.T) {
	if !HasCode(Conflict("x"), CodeConflict) {
		t.Error("expected HasCode to match")
	}
	if HasCode(errors.New("plain"), CodeConflict) {
		t.Error("plain errors must not match any code")
	}
}

func TestAsAppErrorWrapsUnknown(t *testing.T) {
	plain := errors.New("boom")
	appErr := AsAppError(plain)
	if appErr.Code != CodeInternal {
		t.Errorf("expected INTERNAL_ERROR, got %s", appErr.Code)
	}
	if !errors.Is(appErr, plain) {
		t.Error("expected the original error to be preserved in the chain")
	}
}
