// Package guard decides whether a proposed status change is permitted.
//
// The guard is a pure decision function: it takes full snapshots (request,
// profile completion, actor) and returns a Decision value. It performs no
// I/O and keeps no state besides its immutable policy, so identical inputs
// always produce identical outputs. Side effects that accompany a transition
// (mandatory rejection note, audit, finalization) are the orchestrator's
// concern.
package guard

import (
	"github.com/okatech-org/consulat-sub002/internal/profile"
	"github.com/okatech-org/consulat-sub002/internal/request/models"
)

// Reason explains a denial. Denials are expected outcomes, not faults; the
// transport layer surfaces them as disabled-option explanations.
type Reason string

const (
	// ReasonNoOp: the target equals the current status.
	ReasonNoOp Reason = "NO_OP"
	// ReasonAlreadyTerminal: the request is in a terminal state.
	ReasonAlreadyTerminal Reason = "ALREADY_TERMINAL"
	// ReasonProfileIncomplete: VALIDATED requires a 100% complete profile.
	ReasonProfileIncomplete Reason = "PROFILE_INCOMPLETE"
	// ReasonOutOfOrder: the target is behind the current status in the
	// forward order and the actor may not roll back.
	ReasonOutOfOrder Reason = "OUT_OF_ORDER"
	// ReasonInsufficientRole: the actor lacks the minimum role for this
	// category of transition, or is an agent acting on a request not
	// assigned to them.
	ReasonInsufficientRole Reason = "INSUFFICIENT_ROLE"
)

// Decision is the guard's verdict on one proposed transition.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason,omitempty"`
}

func allow() Decision             { return Decision{Allowed: true} }
func deny(reason Reason) Decision { return Decision{Allowed: false, Reason: reason} }

// Category classifies a transition for the capability table. The scattered
// per-screen role comparisons of older portal code collapse into one
// explicit (role, category) table evaluated here and nowhere else.
type Category string

const (
	CategoryForward          Category = "forward"
	CategoryRollback         Category = "rollback"
	CategoryReject           Category = "reject"
	CategoryCancel           Category = "cancel"
	CategoryReopen           Category = "reopen"
	CategoryTerminalOverride Category = "terminal_override"
)

// minRoleFor is the capability table: the least role permitted to perform
// each transition category. Agents carry an extra constraint checked in
// Evaluate: they may only act on requests assigned to them.
var minRoleFor = map[Category]models.Role{
	CategoryForward:          models.RoleAgent,
	CategoryReject:           models.RoleAgent,
	CategoryCancel:           models.RoleAgent,
	CategoryRollback:         models.RoleManager,
	CategoryReopen:           models.RoleAdministrator,
	CategoryTerminalOverride: models.RoleSuperAdministrator,
}

// Policy captures deployment-level choices the state machine leaves open.
type Policy struct {
	// AllowReopenRejected permits administrators to move a REJECTED request
	// back to PENDING. Off by default: rejection is terminal unless the
	// consulate explicitly opts in.
	AllowReopenRejected bool
}

// Guard evaluates transition requests against the ordered state machine,
// the capability table and the profile-completion gate.
type Guard struct {
	policy Policy
}

func New(policy Policy) *Guard {
	return &Guard{policy: policy}
}

// CanSwitchTo decides whether actor may move req to target. Rules are
// evaluated in a fixed order; the first failing rule names the denial.
func (g *Guard) CanSwitchTo(target models.Status, req *models.ServiceRequest, completion profile.Completion, actor models.Actor) Decision {
	// Rule 1: no-op.
	if target == req.Status {
		return deny(ReasonNoOp)
	}

	// Rule 2: terminal states are closed except to the maximally privileged
	// role, and to the configured reopen path.
	if req.Status.IsTerminal() && !actor.IsMaxPrivileged() && !g.isReopen(req.Status, target) {
		return deny(ReasonAlreadyTerminal)
	}

	// Rule 3: VALIDATED is gated on a complete profile regardless of
	// privilege. No role can waive this.
	if target == models.StatusValidated && completion.Overall < 100 {
		return deny(ReasonProfileIncomplete)
	}

	// Rule 4: rollbacks need a privileged actor. Exits to REJECTED and
	// CANCELLED sit outside the forward order and bypass this check.
	if g.isRollback(req.Status, target) && !actor.IsPrivileged() {
		return deny(ReasonOutOfOrder)
	}

	// Rule 5: capability table, plus the agent assignment constraint.
	category := g.Categorize(req.Status, target)
	if !actor.Role.AtLeast(minRoleFor[category]) {
		return deny(ReasonInsufficientRole)
	}
	if actor.Role == models.RoleAgent && !req.IsAssignedTo(actor.ID) {
		return deny(ReasonInsufficientRole)
	}

	return allow()
}

// Categorize maps a (current, target) pair to its transition category.
func (g *Guard) Categorize(current, target models.Status) Category {
	switch target {
	case models.StatusRejected:
		return CategoryReject
	case models.StatusCancelled:
		return CategoryCancel
	}
	if g.isReopen(current, target) {
		return CategoryReopen
	}
	if current.IsTerminal() {
		return CategoryTerminalOverride
	}
	if g.isRollback(current, target) {
		return CategoryRollback
	}
	return CategoryForward
}

// isRollback reports whether target sits behind current in the forward
// order. Statuses outside the order never participate.
func (g *Guard) isRollback(current, target models.Status) bool {
	cur, okCur := current.Position()
	tgt, okTgt := target.Position()
	return okCur && okTgt && tgt < cur
}

// isReopen reports whether the pair is the policy-controlled
// REJECTED -> PENDING path.
func (g *Guard) isReopen(current, target models.Status) bool {
	return g.policy.AllowReopenRejected &&
		current == models.StatusRejected &&
		target == models.StatusPending
}
