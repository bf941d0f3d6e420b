package entity

import "testing"

func TestStatus_Predicates(t *testing.T) {
	tests := []struct {
		status   Status
		valid    bool
		terminal bool
		awaiting bool
	}{
		{StatusDraft, true, false, false},
		{StatusSubmitted, true, false, true},
		{StatusPending, true, false, true},
		{StatusApproved, true, true, false},
		{StatusRejected, true, true, false},
		{StatusCompleted, true, true, false},
		{Status("archived"), false, false, false},
		{Status("Draft"), false, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
			if got := tt.status.IsTerminal(); got != tt.terminal {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.terminal)
			}
			if got := tt.status.IsAwaitingApproval(); got != tt.awaiting {
				t.Errorf("IsAwaitingApproval() = %v, want %v", got, tt.awaiting)
			}
		})
	}
}

func TestAllStatuses(t *testing.T) {
	all := AllStatuses()
	if len(all) != 6 {
		t.Fatalf("AllStatuses() returned %d statuses, want 6", len(all))
	}
	if all[0] != StatusDraft || all[5] != StatusCompleted {
		t.Errorf("AllStatuses() = %v, want lifecycle order", all)
	}
}

func TestPriority_IsValid(t *testing.T) {
	for _, p := range []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical} {
		if !p.IsValid() {
			t.Errorf("%s.IsValid() = false, want true", p)
		}
	}
	for _, p := range []Priority{"", "urgent", "HIGH"} {
		if p.IsValid() {
			t.Errorf("%q.IsValid() = true, want false", p)
		}
	}
}

func TestRole_IsValid(t *testing.T) {
	for _, r := range []Role{RoleRequester, RoleApprover, RoleAdmin} {
		if !r.IsValid() {
			t.Errorf("%s.IsValid() = false, want true", r)
		}
	}
	if Role("manager").IsValid() {
		t.Error("Role(manager).IsValid() = true, want false")
	}
}

func TestDate(t *testing.T) {
	if _, err := ParseDate("2025-12-30"); err != nil {
		t.Errorf("ParseDate(valid) error = %v", err)
	}
	for _, s := range []string{"", "2025-13-01", "30/12/2025", "2025-12-30T10:00:00Z"} {
		if _, err := ParseDate(s); err == nil {
			t.Errorf("ParseDate(%q) should fail", s)
		}
	}

	if !Date("2025-12-10").Before(Date("2025-12-15")) {
		t.Error("2025-12-10 should be before 2025-12-15")
	}
	if Date("2026-01-01").Before(Date("2025-12-31")) {
		t.Error("2026-01-01 should not be before 2025-12-31")
	}
	if !Date("").IsZero() {
		t.Error("empty date should be zero")
	}
}
