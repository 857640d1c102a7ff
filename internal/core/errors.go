package core

import "fmt"

// NotFoundError reports an operation on an unknown tab.
type NotFoundError struct {
	TabID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no session for tab %s", e.TabID)
}

// BusyError reports a send attempted while a request is already outstanding
// for the session.
type BusyError struct {
	TabID string
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("session %s already has a request in flight", e.TabID)
}

// LastSessionError reports a refusal to close the only remaining session.
type LastSessionError struct {
	TabID string
}

func (e *LastSessionError) Error() string {
	return fmt.Sprintf("cannot close %s: it is the last remaining session", e.TabID)
}
