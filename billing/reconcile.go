/*
reconcile.go - Draft reconciliation across recomputations

PURPOSE:
  Drafts are recomputed wholesale whenever an input changes (config,
  clock, watermark, extra pool). This layer merges the fresh set with the
  previous one by identity so that user edits and completion status
  survive recomputation.

MERGE RULES:
  - Same identity as before: keep status, take amount/labels/extra from
    the fresh computation, and re-apply any fields the user explicitly
    edited (tracked in the pending-edits side-table).
  - New identity with a pending edit (rapid recomputation): apply the
    edit anyway.
  - Identity gone (watermark advanced past it): drop the draft and clear
    its pending edits.

  The side-table is an explicit map owned by the Reconciler and passed
  through the merge - never a global. The merge itself is pure over two
  keyed collections and has no failure modes.
*/
package billing

import "sync"

// =============================================================================
// PENDING EDITS - User intent, keyed by draft identity
// =============================================================================

// PendingEdit records the fields a user explicitly changed on a draft.
// Nil fields were not touched.
type PendingEdit struct {
	InvoiceNo      *string
	VariableSymbol *string
	Description    *string
}

func (e PendingEdit) isEmpty() bool {
	return e.InvoiceNo == nil && e.VariableSymbol == nil && e.Description == nil
}

// merge overlays other's set fields onto e.
func (e PendingEdit) merge(other PendingEdit) PendingEdit {
	if other.InvoiceNo != nil {
		e.InvoiceNo = other.InvoiceNo
	}
	if other.VariableSymbol != nil {
		e.VariableSymbol = other.VariableSymbol
	}
	if other.Description != nil {
		e.Description = other.Description
	}
	return e
}

// =============================================================================
// RECONCILER - Owns the previous draft set and the edit side-table
// =============================================================================

type Reconciler struct {
	mu       sync.Mutex
	previous map[DraftID]Draft
	order    []DraftID
	edits    map[DraftID]PendingEdit
}

func NewReconciler() *Reconciler {
	return &Reconciler{
		previous: make(map[DraftID]Draft),
		edits:    make(map[DraftID]PendingEdit),
	}
}

// RecordEdit stores a user edit for a draft identity. Fields accumulate
// across calls; unset fields leave earlier edits intact.
func (r *Reconciler) RecordEdit(id DraftID, edit PendingEdit) {
	if edit.isEmpty() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.edits[id] = r.edits[id].merge(edit)
	if d, ok := r.previous[id]; ok {
		r.previous[id] = applyEdit(d, r.edits[id])
	}
}

// MarkStatus updates the lifecycle status of a held draft.
func (r *Reconciler) MarkStatus(id DraftID, status DraftStatus, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.previous[id]
	if !ok {
		return ErrDraftNotFound
	}
	d.Status = status
	d.ErrorMsg = errMsg
	r.previous[id] = d
	return nil
}

// Merge reconciles a freshly computed draft list against the held set and
// becomes the new held set. The returned slice is in fresh order.
func (r *Reconciler) Merge(fresh []Draft) []Draft {
	r.mu.Lock()
	defer r.mu.Unlock()

	merged := make([]Draft, 0, len(fresh))
	next := make(map[DraftID]Draft, len(fresh))
	order := make([]DraftID, 0, len(fresh))

	for _, d := range fresh {
		if prev, ok := r.previous[d.ID]; ok {
			d.Status = prev.Status
			d.ErrorMsg = prev.ErrorMsg
		}
		if edit, ok := r.edits[d.ID]; ok {
			d = applyEdit(d, edit)
		}
		merged = append(merged, d)
		next[d.ID] = d
		order = append(order, d.ID)
	}

	// Clear edits for identities that disappeared.
	for id := range r.edits {
		if _, ok := next[id]; !ok {
			delete(r.edits, id)
		}
	}

	r.previous = next
	r.order = order
	return merged
}

// Drafts returns a snapshot of the held draft set in merge order.
func (r *Reconciler) Drafts() []Draft {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Draft, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.previous[id])
	}
	return out
}

// Draft returns one held draft by identity.
func (r *Reconciler) Draft(id DraftID) (Draft, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.previous[id]
	return d, ok
}

// Edits returns a copy of the pending-edit side-table, for persistence.
func (r *Reconciler) Edits() map[DraftID]PendingEdit {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[DraftID]PendingEdit, len(r.edits))
	for id, e := range r.edits {
		out[id] = e
	}
	return out
}

// RestoreEdits seeds the side-table, typically from persistence at startup.
func (r *Reconciler) RestoreEdits(edits map[DraftID]PendingEdit) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, e := range edits {
		if !e.isEmpty() {
			r.edits[id] = r.edits[id].merge(e)
		}
	}
}

func applyEdit(d Draft, e PendingEdit) Draft {
	if e.InvoiceNo != nil {
		d.InvoiceNo = *e.InvoiceNo
	}
	if e.VariableSymbol != nil {
		d.VariableSymbol = *e.VariableSymbol
	}
	if e.Description != nil {
		d.Description = *e.Description
	}
	return d
}
