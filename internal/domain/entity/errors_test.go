package entity

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestTypedErrors_Classification(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"validation", &ValidationError{Field: "title", Reason: "is required"}, IsValidation},
		{"invalid state", &InvalidStateError{Status: StatusSubmitted, Operation: "edit"}, IsInvalidState},
		{"invalid transition", &InvalidTransitionError{From: StatusApproved, Event: "approve"}, IsInvalidTransition},
		{"unauthorized", &UnauthorizedError{Operation: "approve", Required: "approver", Actual: RoleRequester}, IsUnauthorized},
		{"not found", &NotFoundError{ID: "wf-404"}, IsNotFound},
		{"storage", &StorageError{Op: "save", Err: errors.New("disk full")}, IsStorage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check(tt.err) {
				t.Errorf("classification failed for %v", tt.err)
			}
			wrapped := fmt.Errorf("service: %w", tt.err)
			if !tt.check(wrapped) {
				t.Errorf("classification failed through wrapping for %v", wrapped)
			}
		})
	}
}

func TestTypedErrors_Messages(t *testing.T) {
	err := &InvalidTransitionError{From: StatusRejected, Event: "approve"}
	if !strings.Contains(err.Error(), "rejected") || !strings.Contains(err.Error(), "approve") {
		t.Errorf("InvalidTransitionError message = %q, want status and event", err.Error())
	}

	if got := (&NotFoundError{ID: "wf-404"}).Error(); got != "workflow not found: wf-404" {
		t.Errorf("NotFoundError message = %q", got)
	}
	if got := (&NotFoundError{Kind: KindUser, ID: "u-1"}).Error(); got != "user not found: u-1" {
		t.Errorf("NotFoundError message = %q", got)
	}

	unauthorized := &UnauthorizedError{Operation: "create", Required: "requester"}
	if !strings.Contains(unauthorized.Error(), "actor has none") {
		t.Errorf("UnauthorizedError message = %q", unauthorized.Error())
	}
}

func TestNewStorageError(t *testing.T) {
	if NewStorageError("save", nil) != nil {
		t.Error("NewStorageError(nil) should be nil")
	}

	conflict := NewStorageError("save", ErrVersionConflict)
	if !IsStorage(conflict) || !IsVersionConflict(conflict) {
		t.Errorf("conflict should be both storage and version conflict: %v", conflict)
	}

	again := NewStorageError("load", conflict)
	if again != conflict {
		t.Error("NewStorageError should not double-wrap storage errors")
	}

	var serr *StorageError
	if !errors.As(again, &serr) || serr.Op != "save" {
		t.Errorf("errors.As StorageError = %+v", serr)
	}
}
