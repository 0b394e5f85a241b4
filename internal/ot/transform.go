package ot

import "docsync/internal/models"

// Transform adjusts pending's position so it still targets the intended
// logical location after applied has already mutated the shared buffer.
//
// The transform is one-sided and single-pass: it only rewrites pending, never
// applied, and it does not compose multiple prior operations transitively.
// Two replicas applying operations in different relative orders may therefore
// diverge. That is a documented property of this relay, not an oversight;
// convergence would require a full OT matrix or a CRDT.
//
// pending is returned unchanged when:
//   - both operations come from the same user (an author sequences their own
//     edits; they are never transformed against each other here),
//   - the operations target different documents, or
//   - pending was not issued strictly after applied.
func Transform(pending, applied models.Operation) models.Operation {
	if pending.UserID == applied.UserID || pending.DocumentID != applied.DocumentID {
		return pending
	}
	if pending.IssuedAt <= applied.IssuedAt {
		return pending
	}

	switch applied.Kind {
	case models.OpInsert:
		// Text inserted at or before the pending position pushes it forward.
		if applied.Position <= pending.Position {
			pending.Position += len(applied.Text)
		}
	case models.OpDelete:
		// Only the part of the deleted span strictly before the pending
		// position pulls it backward.
		if applied.Position < pending.Position {
			overlap := applied.Position + applied.Length - pending.Position
			if overlap < 0 {
				overlap = 0
			}
			pending.Position -= applied.Length - overlap
		}
	}
	return pending
}
