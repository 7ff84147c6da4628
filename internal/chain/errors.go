package chain

import "fmt"

// InfeasibleRequestError is raised during readiness evaluation when the
// accumulated inputs can never satisfy the requested output, for example a
// decadal aggregation over a year count other than ten. It aborts the chain
// before any sub-command runs; produced artifacts are left for inspection.
type InfeasibleRequestError struct {
	Step   string
	Reason string
}

func (e *InfeasibleRequestError) Error() string {
	if e.Step == "" {
		return "infeasible request: " + e.Reason
	}
	return fmt.Sprintf("infeasible request at step %s: %s", e.Step, e.Reason)
}

// StructuralPolicyError is raised before any I/O when a step's configuration
// violates a structural rule, such as a forbid-in-place step whose only
// sub-commands would mutate their input.
type StructuralPolicyError struct {
	Step   string
	Reason string
}

func (e *StructuralPolicyError) Error() string {
	if e.Step == "" {
		return "structural policy violation: " + e.Reason
	}
	return fmt.Sprintf("structural policy violation at step %s: %s", e.Step, e.Reason)
}

// UnknownStageError is raised at chain-build time when a stage token has no
// registered variant factory.
type UnknownStageError struct {
	Token string
	Known []string
}

func (e *UnknownStageError) Error() string {
	return fmt.Sprintf("unknown stage %q, registered stages: %v", e.Token, e.Known)
}

// CommandError wraps a failed sub-command with the step that ran it.
type CommandError struct {
	Step    string
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("step %s: sub-command %s failed: %v", e.Step, e.Command, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }
