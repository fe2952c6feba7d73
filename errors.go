package qbdt

import "fmt"

/*
UnimplementedError reports that a structural operation was invoked on a
node variant that does not override it. This is a configuration bug, not a
transient condition: the separability threshold was likely set high enough
that tree construction selected a simplified variant without dense-state
fallbacks. It is never retried internally and always surfaces to the
immediate caller.
*/
type UnimplementedError struct {
	Op string
}

func (e *UnimplementedError) Error() string {
	return fmt.Sprintf(
		"qbdt: %s not implemented on this node variant (QBDT_SEPARABILITY_THRESHOLD may be set too high)",
		e.Op,
	)
}

func errUnimplemented(op string) error {
	return &UnimplementedError{Op: op}
}

/*
PreconditionError reports a caller logic error: an operation was invoked on
a tree that cannot legally absorb it, such as pushing a state vector past
terminal depth or removing a region that is not separable. It is kept
distinct from UnimplementedError because the remedy differs.
*/
type PreconditionError struct {
	Op     string
	Detail string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("qbdt: %s: %s", e.Op, e.Detail)
}
