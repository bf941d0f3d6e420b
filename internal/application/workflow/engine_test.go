package workflow

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/workflowos/approval-engine/internal/domain/entity"
	domainwf "github.com/workflowos/approval-engine/internal/domain/workflow"
)

var (
	r1 = entity.Identity{ID: "R1", Name: "Requester One", Role: entity.RoleRequester}
	r2 = entity.Identity{ID: "R2", Name: "Requester Two", Role: entity.RoleRequester}
	a1 = entity.Identity{ID: "A1", Name: "Approver One", Role: entity.RoleApprover}
	a2 = entity.Identity{ID: "A2", Name: "Approver Two", Role: entity.RoleApprover}
	ad = entity.Identity{ID: "AD", Name: "Admin", Role: entity.RoleAdmin}
)

var laptop = entity.CreateInput{Title: "Laptop", Description: "New laptop", Category: "Hardware", Priority: entity.PriorityMedium}

// fakeClock advances one minute per call so action timestamps are strictly ordered
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

func newTestEngine() LifecycleEngine {
	clock := &fakeClock{t: time.Date(2026, 1, 20, 9, 0, 0, 0, time.UTC)}
	seq := 0
	return NewEngine(
		WithClock(clock.Now),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("wf-%03d", seq)
		}),
	)
}

func mustCreate(t *testing.T, e LifecycleEngine) *entity.Workflow {
	t.Helper()
	w, err := e.Create(context.Background(), r1, laptop)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	return w
}

func mustSubmit(t *testing.T, e LifecycleEngine) *entity.Workflow {
	t.Helper()
	w, err := e.Submit(context.Background(), r1, mustCreate(t, e))
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	return w
}

// Test factory

func TestBuildWorkflowStateMachine(t *testing.T) {
	tests := []struct {
		name         string
		initialState domainwf.State
		trigger      domainwf.Trigger
		comment      string
		wantState    domainwf.State
		wantError    bool
	}{
		{"draft -> submitted on submit", domainwf.StateDraft, domainwf.TriggerSubmit, "", domainwf.StateSubmitted, false},
		{"draft reentry on edit", domainwf.StateDraft, domainwf.TriggerEdit, "", domainwf.StateDraft, false},
		{"draft reentry on delete", domainwf.StateDraft, domainwf.TriggerDelete, "", domainwf.StateDraft, false},
		{"submitted -> pending on queue", domainwf.StateSubmitted, domainwf.TriggerQueue, "", domainwf.StatePending, false},
		{"submitted -> approved on approve", domainwf.StateSubmitted, domainwf.TriggerApprove, "", domainwf.StateApproved, false},
		{"submitted -> rejected with comment", domainwf.StateSubmitted, domainwf.TriggerReject, "no", domainwf.StateRejected, false},
		{"submitted reject without comment", domainwf.StateSubmitted, domainwf.TriggerReject, " ", domainwf.StateSubmitted, true},
		{"pending -> approved on approve", domainwf.StatePending, domainwf.TriggerApprove, "", domainwf.StateApproved, false},
		{"pending -> rejected with comment", domainwf.StatePending, domainwf.TriggerReject, "no", domainwf.StateRejected, false},
		{"approved -> completed on complete", domainwf.StateApproved, domainwf.TriggerComplete, "", domainwf.StateCompleted, false},
		{"pending cannot be queued again", domainwf.StatePending, domainwf.TriggerQueue, "", domainwf.StatePending, true},
		{"approved cannot be approved", domainwf.StateApproved, domainwf.TriggerApprove, "", domainwf.StateApproved, true},
		{"rejected is terminal", domainwf.StateRejected, domainwf.TriggerComplete, "", domainwf.StateRejected, true},
		{"completed is terminal", domainwf.StateCompleted, domainwf.TriggerReject, "x", domainwf.StateCompleted, true},
		{"submitted cannot be edited", domainwf.StateSubmitted, domainwf.TriggerEdit, "", domainwf.StateSubmitted, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			machine := BuildWorkflowStateMachine(tt.initialState)
			err := machine.Fire(WithComment(context.Background(), tt.comment), tt.trigger)

			if (err != nil) != tt.wantError {
				t.Errorf("Fire() error = %v, wantError %v", err, tt.wantError)
			}
			if machine.State() != tt.wantState {
				t.Errorf("State = %v, want %v", machine.State(), tt.wantState)
			}
		})
	}
}

func TestBuildWorkflowStateMachine_Independent(t *testing.T) {
	m1 := BuildWorkflowStateMachine(domainwf.StateDraft)
	m2 := BuildWorkflowStateMachine(domainwf.StateDraft)

	if err := m1.Fire(context.Background(), domainwf.TriggerSubmit); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}
	if m2.State() != domainwf.StateDraft {
		t.Errorf("m2 state = %v, want draft", m2.State())
	}
}

// Test engine operations

func TestEngine_Create(t *testing.T) {
	e := newTestEngine()
	w := mustCreate(t, e)

	if w.Status != entity.StatusDraft {
		t.Errorf("Status = %v, want draft", w.Status)
	}
	if len(w.Actions) != 0 {
		t.Errorf("Actions = %d, want 0", len(w.Actions))
	}
	if w.ID != "wf-001" || w.RequesterID != r1.ID || w.RequesterName != r1.Name {
		t.Errorf("identity fields = %q/%q/%q", w.ID, w.RequesterID, w.RequesterName)
	}
	if w.CreatedAt != "2026-01-20" || w.UpdatedAt != w.CreatedAt {
		t.Errorf("dates = %s/%s, want 2026-01-20", w.CreatedAt, w.UpdatedAt)
	}
	if w.HasApprover() {
		t.Error("new workflow should have no approver")
	}
	if err := w.CheckInvariants(); err != nil {
		t.Errorf("CheckInvariants() = %v", err)
	}
}

func TestEngine_Create_Failures(t *testing.T) {
	e := newTestEngine()

	if _, err := e.Create(context.Background(), a1, laptop); !entity.IsUnauthorized(err) {
		t.Errorf("approver Create() error = %v, want unauthorized", err)
	}
	if _, err := e.Create(context.Background(), ad, laptop); !entity.IsUnauthorized(err) {
		t.Errorf("admin Create() error = %v, want unauthorized", err)
	}

	blank := laptop
	blank.Title = "  "
	if _, err := e.Create(context.Background(), r1, blank); !entity.IsValidation(err) {
		t.Errorf("blank title Create() error = %v, want validation", err)
	}
}

func TestEngine_Edit(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	w := mustCreate(t, e)

	title := "Laptop Pro"
	edited, err := e.Edit(ctx, r1, w, entity.EditPatch{Title: &title})
	if err != nil {
		t.Fatalf("Edit() failed: %v", err)
	}
	if edited.Title != "Laptop Pro" || edited.Status != entity.StatusDraft {
		t.Errorf("edited = %q/%v", edited.Title, edited.Status)
	}
	if len(edited.Actions) != 0 {
		t.Error("Edit() should not append an audit action")
	}
	if edited.Version != w.Version+1 {
		t.Errorf("Version = %d, want %d", edited.Version, w.Version+1)
	}
	if w.Title != "Laptop" {
		t.Error("Edit() should not modify its input")
	}

	if _, err := e.Edit(ctx, r2, w, entity.EditPatch{Title: &title}); !entity.IsUnauthorized(err) {
		t.Errorf("non-owner Edit() error = %v, want unauthorized", err)
	}
	if _, err := e.Edit(ctx, r1, w, entity.EditPatch{}); !entity.IsValidation(err) {
		t.Errorf("empty patch Edit() error = %v, want validation", err)
	}

	submitted, _ := e.Submit(ctx, r1, w)
	if _, err := e.Edit(ctx, r1, submitted, entity.EditPatch{Title: &title}); !entity.IsInvalidState(err) {
		t.Errorf("Edit() on submitted error = %v, want invalid state", err)
	}
}

func TestEngine_Submit(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	w := mustCreate(t, e)

	submitted, err := e.Submit(ctx, r1, w)
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if submitted.Status != entity.StatusSubmitted {
		t.Errorf("Status = %v, want submitted", submitted.Status)
	}
	if len(submitted.Actions) != 1 || submitted.Actions[0].Action != entity.ActionSubmitted {
		t.Fatalf("Actions = %+v, want one submitted action", submitted.Actions)
	}
	if submitted.Actions[0].ActorID != r1.ID {
		t.Errorf("ActorID = %q, want %q", submitted.Actions[0].ActorID, r1.ID)
	}
	if w.Status != entity.StatusDraft || len(w.Actions) != 0 {
		t.Error("Submit() should not modify its input")
	}

	// Submitting any non-draft status fails with InvalidStateError
	for _, status := range []entity.Status{entity.StatusSubmitted, entity.StatusPending, entity.StatusApproved, entity.StatusRejected, entity.StatusCompleted} {
		nonDraft := w.Clone()
		nonDraft.Status = status
		_, err := e.Submit(ctx, r1, nonDraft)
		var stateErr *entity.InvalidStateError
		if !errors.As(err, &stateErr) {
			t.Errorf("Submit() from %s error = %v, want *InvalidStateError", status, err)
			continue
		}
		if stateErr.Status != status || stateErr.Operation != "submit" {
			t.Errorf("InvalidStateError = %+v", stateErr)
		}
	}

	if _, err := e.Submit(ctx, r2, w); !entity.IsUnauthorized(err) {
		t.Errorf("non-owner Submit() error = %v, want unauthorized", err)
	}
}

func TestEngine_Queue(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	w := mustSubmit(t, e)

	pending, err := e.Queue(ctx, a1, w)
	if err != nil {
		t.Fatalf("Queue() failed: %v", err)
	}
	if pending.Status != entity.StatusPending {
		t.Errorf("Status = %v, want pending", pending.Status)
	}
	if pending.HasApprover() {
		t.Error("Queue() should not record an approver")
	}
	if last := pending.LastAction(); last == nil || last.Action != entity.ActionQueued {
		t.Errorf("LastAction() = %+v, want queued", last)
	}

	if _, err := e.Queue(ctx, a1, pending); !entity.IsInvalidTransition(err) {
		t.Errorf("Queue() twice error = %v, want invalid transition", err)
	}
	if _, err := e.Queue(ctx, r1, w); !entity.IsUnauthorized(err) {
		t.Errorf("requester Queue() error = %v, want unauthorized", err)
	}
}

func TestEngine_Reject(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	w := mustSubmit(t, e)

	_, err := e.Reject(ctx, a1, w, "   ")
	var verr *entity.ValidationError
	if !errors.As(err, &verr) || verr.Field != "comment" {
		t.Fatalf("Reject() without comment error = %v, want comment validation error", err)
	}

	rejected, err := e.Reject(ctx, a1, w, "Budget exceeded")
	if err != nil {
		t.Fatalf("Reject() failed: %v", err)
	}
	if rejected.Status != entity.StatusRejected {
		t.Errorf("Status = %v, want rejected", rejected.Status)
	}
	if rejected.ApproverID != a1.ID || rejected.ApproverName != a1.Name {
		t.Errorf("approver = %q/%q", rejected.ApproverID, rejected.ApproverName)
	}
	if len(rejected.Actions) != 2 {
		t.Fatalf("Actions = %d, want 2", len(rejected.Actions))
	}
	if last := rejected.Actions[1]; last.Action != entity.ActionRejected || last.Comment != "Budget exceeded" {
		t.Errorf("last action = %+v", last)
	}

	pending, _ := e.Queue(ctx, a2, w)
	if _, err := e.Reject(ctx, a1, pending, "Not this quarter"); err != nil {
		t.Errorf("Reject() from pending failed: %v", err)
	}
}

func TestEngine_TerminalDecisionsFail(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	w := mustSubmit(t, e)

	approved, _ := e.Approve(ctx, a1, w, "")
	rejected, _ := e.Reject(ctx, a1, w, "no")
	completed, _ := e.Complete(ctx, ad, approved, "")

	for _, terminal := range []*entity.Workflow{approved, rejected, completed} {
		before := terminal.Clone()

		if _, err := e.Approve(ctx, a2, terminal, ""); !entity.IsInvalidTransition(err) {
			t.Errorf("Approve() on %s error = %v, want invalid transition", terminal.Status, err)
		}
		if _, err := e.Reject(ctx, a2, terminal, "again"); !entity.IsInvalidTransition(err) {
			t.Errorf("Reject() on %s error = %v, want invalid transition", terminal.Status, err)
		}
		// Rejecting a terminal workflow without a comment still reports the transition
		if _, err := e.Reject(ctx, a2, terminal, ""); !entity.IsInvalidTransition(err) {
			t.Errorf("Reject() without comment on %s error = %v, want invalid transition", terminal.Status, err)
		}

		if len(terminal.Actions) != len(before.Actions) || terminal.ApproverID != before.ApproverID || terminal.Version != before.Version {
			t.Errorf("%s workflow changed after failed decision", terminal.Status)
		}
	}
}

func TestEngine_Complete(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	approved, _ := e.Approve(ctx, a1, mustSubmit(t, e), "ok")

	if _, err := e.Complete(ctx, a1, approved, ""); !entity.IsUnauthorized(err) {
		t.Errorf("approver Complete() error = %v, want unauthorized", err)
	}

	completed, err := e.Complete(ctx, ad, approved, "")
	if err != nil {
		t.Fatalf("Complete() failed: %v", err)
	}
	if completed.Status != entity.StatusCompleted || completed.ApproverID != a1.ID {
		t.Errorf("completed = %v/%q", completed.Status, completed.ApproverID)
	}
	if last := completed.LastAction(); last.Action != entity.ActionCompleted || last.ActorID != ad.ID {
		t.Errorf("last action = %+v", last)
	}
	if err := completed.CheckInvariants(); err != nil {
		t.Errorf("CheckInvariants() = %v", err)
	}
}

func TestEngine_CheckDelete(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	w := mustCreate(t, e)

	if err := e.CheckDelete(ctx, r1, w); err != nil {
		t.Errorf("owner CheckDelete() = %v", err)
	}
	if err := e.CheckDelete(ctx, r2, w); !entity.IsUnauthorized(err) {
		t.Errorf("non-owner CheckDelete() = %v, want unauthorized", err)
	}
	if err := e.CheckDelete(ctx, a1, w); !entity.IsUnauthorized(err) {
		t.Errorf("approver CheckDelete() = %v, want unauthorized", err)
	}

	submitted, _ := e.Submit(ctx, r1, w)
	if err := e.CheckDelete(ctx, r1, submitted); !entity.IsInvalidState(err) {
		t.Errorf("CheckDelete() on submitted = %v, want invalid state", err)
	}
}

func TestEngine_AvailableTriggers(t *testing.T) {
	e := newTestEngine()
	w := mustCreate(t, e)

	tests := []struct {
		name  string
		actor entity.Identity
		w     *entity.Workflow
		want  []domainwf.Trigger
	}{
		{"owner on draft", r1, w, []domainwf.Trigger{domainwf.TriggerDelete, domainwf.TriggerEdit, domainwf.TriggerSubmit}},
		{"stranger on draft", r2, w, nil},
		{"approver on submitted", a1, mustSubmit(t, e), []domainwf.Trigger{domainwf.TriggerApprove, domainwf.TriggerQueue, domainwf.TriggerReject}},
		{"admin on submitted", ad, mustSubmit(t, e), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.AvailableTriggers(tt.actor, tt.w)
			if len(got) != len(tt.want) {
				t.Fatalf("AvailableTriggers() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("AvailableTriggers()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestEngine_UnknownStatus(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	w := mustCreate(t, e)
	w.Status = entity.Status("DRAFT")

	if _, err := e.Submit(ctx, r1, w); !entity.IsInvalidTransition(err) {
		t.Errorf("Submit() error = %v, want invalid transition", err)
	}
	if _, err := e.Approve(ctx, a1, w, ""); !entity.IsInvalidTransition(err) {
		t.Errorf("Approve() error = %v, want invalid transition", err)
	}
	if err := e.CheckDelete(ctx, r1, w); !entity.IsInvalidTransition(err) {
		t.Errorf("CheckDelete() error = %v, want invalid transition", err)
	}
	if got := e.AvailableTriggers(r1, w); len(got) != 0 {
		t.Errorf("AvailableTriggers() = %v, want none", got)
	}
	if len(w.Actions) != 0 || w.Status != "DRAFT" {
		t.Errorf("workflow changed after refused trigger: %+v", w)
	}
}

// End-to-end scenarios

func TestScenario_RejectWithComment(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	w, err := e.Create(ctx, r1, laptop)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	w, err = e.Submit(ctx, r1, w)
	if err != nil || w.Status != entity.StatusSubmitted {
		t.Fatalf("Submit() = %v, %v", w.Status, err)
	}
	w, err = e.Reject(ctx, a1, w, "Budget exceeded")
	if err != nil {
		t.Fatalf("Reject() failed: %v", err)
	}

	if w.Status != entity.StatusRejected {
		t.Errorf("Status = %v, want rejected", w.Status)
	}
	want := []entity.ActionType{entity.ActionSubmitted, entity.ActionRejected}
	if len(w.Actions) != len(want) {
		t.Fatalf("Actions = %+v", w.Actions)
	}
	for i, action := range want {
		if w.Actions[i].Action != action {
			t.Errorf("Actions[%d] = %v, want %v", i, w.Actions[i].Action, action)
		}
	}
	if w.Actions[1].Comment != "Budget exceeded" {
		t.Errorf("comment = %q", w.Actions[1].Comment)
	}
	if err := w.CheckInvariants(); err != nil {
		t.Errorf("CheckInvariants() = %v", err)
	}
}

func TestScenario_SecondApproverLoses(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	w := mustSubmit(t, e)
	w, err := e.Approve(ctx, a1, w, "")
	if err != nil {
		t.Fatalf("Approve() failed: %v", err)
	}
	if w.Status != entity.StatusApproved || w.ApproverID != a1.ID {
		t.Errorf("after approve = %v/%q", w.Status, w.ApproverID)
	}

	_, err = e.Approve(ctx, a2, w, "")
	var transitionErr *entity.InvalidTransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("second Approve() error = %v, want *InvalidTransitionError", err)
	}
	if transitionErr.From != entity.StatusApproved || transitionErr.Event != "approve" {
		t.Errorf("InvalidTransitionError = %+v", transitionErr)
	}
}
