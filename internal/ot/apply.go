// Package ot implements the best-effort edit model used by the collaboration
// relay: clamping insert/delete application and a one-sided position
// transform. It deliberately does not implement full operational
// transformation; see Transform for the exact guarantees.
package ot

import (
	"errors"
	"fmt"

	"docsync/internal/models"
)

var (
	// ErrInvalidOperation reports a malformed insert or delete (wrong kind,
	// empty insert text, non-positive delete length).
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrUnknownOperationKind reports an operation whose kind tag is neither
	// insert nor delete.
	ErrUnknownOperationKind = errors.New("unknown operation kind")
)

// ApplyInsert splices op.Text into buffer at op.Position. The position is
// clamped to [0, len(buffer)], so out-of-range inserts degrade to prepends or
// appends rather than failing.
func ApplyInsert(buffer string, op models.Operation) (string, error) {
	if op.Kind != models.OpInsert || op.Text == "" {
		return "", fmt.Errorf("%w: insert requires non-empty text", ErrInvalidOperation)
	}
	pos := clamp(op.Position, len(buffer))
	return buffer[:pos] + op.Text + buffer[pos:], nil
}

// ApplyDelete removes up to op.Length characters from buffer starting at
// op.Position. Both the position and the span are clamped to the buffer
// bounds, so an oversized delete truncates to the end of the buffer.
func ApplyDelete(buffer string, op models.Operation) (string, error) {
	if op.Kind != models.OpDelete || op.Length <= 0 {
		return "", fmt.Errorf("%w: delete requires a positive length", ErrInvalidOperation)
	}
	pos := clamp(op.Position, len(buffer))
	n := op.Length
	if n > len(buffer)-pos {
		n = len(buffer) - pos
	}
	return buffer[:pos] + buffer[pos+n:], nil
}

// Apply dispatches to ApplyInsert or ApplyDelete by op.Kind.
func Apply(buffer string, op models.Operation) (string, error) {
	switch op.Kind {
	case models.OpInsert:
		return ApplyInsert(buffer, op)
	case models.OpDelete:
		return ApplyDelete(buffer, op)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOperationKind, op.Kind)
	}
}

func clamp(pos, max int) int {
	if pos < 0 {
		return 0
	}
	if pos > max {
		return max
	}
	return pos
}
