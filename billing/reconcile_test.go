package billing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fakturak/billing-engine/billing"
)

func str(s string) *string { return &s }

func computeDraftSet(rs billing.Ruleset, lastInvoiced int) []billing.Draft {
	return billing.ComputeDrafts(billing.ComputeInput{
		Rulesets:          []billing.Ruleset{rs},
		Today:             onDate(time.March, 10),
		LastInvoicedMonth: lastInvoiced,
	})
}

func TestMergeKeepsUserEditsAcrossRecompute(t *testing.T) {
	// GIVEN a held draft set with a user edit on one draft
	rs := flatRuleset("main", 50000, 90000)
	rec := billing.NewReconciler()
	drafts := rec.Merge(computeDraftSet(rs, 0))
	require.Len(t, drafts, 2)

	rec.RecordEdit(drafts[0].ID, billing.PendingEdit{
		InvoiceNo:      str("2026001"),
		VariableSymbol: str("26001"),
	})

	// WHEN recomputation produces the same identities
	merged := rec.Merge(computeDraftSet(rs, 0))

	// THEN the edited fields survive while amounts stay fresh
	require.Len(t, merged, 2)
	assert.Equal(t, "2026001", merged[0].InvoiceNo)
	assert.Equal(t, "26001", merged[0].VariableSymbol)
	assert.True(t, merged[0].Amount.Equal(amount(50000)))
	assert.Empty(t, merged[1].InvoiceNo)
}

func TestMergeKeepsStatus(t *testing.T) {
	// GIVEN a held draft marked done
	rs := flatRuleset("main", 50000, 90000)
	rec := billing.NewReconciler()
	drafts := rec.Merge(computeDraftSet(rs, 0))
	require.NoError(t, rec.MarkStatus(drafts[0].ID, billing.StatusDone, ""))

	// WHEN recomputing
	merged := rec.Merge(computeDraftSet(rs, 0))

	// THEN the status carries over by identity
	assert.Equal(t, billing.StatusDone, merged[0].Status)
	assert.Equal(t, billing.StatusPending, merged[1].Status)
}

func TestMergeDropsVanishedIdentitiesAndClearsEdits(t *testing.T) {
	// GIVEN edits on a draft that the watermark is about to pass
	rs := flatRuleset("main", 50000, 90000)
	rec := billing.NewReconciler()
	drafts := rec.Merge(computeDraftSet(rs, 0))
	rec.RecordEdit(drafts[0].ID, billing.PendingEdit{InvoiceNo: str("2026001")})

	// WHEN the watermark advances past January
	merged := rec.Merge(computeDraftSet(rs, 1))

	// THEN the January draft is gone and its edit is cleared
	require.Len(t, merged, 1)
	assert.Equal(t, 2, merged[0].ID.Month)
	assert.Empty(t, rec.Edits())

	_, held := rec.Draft(drafts[0].ID)
	assert.False(t, held)
}

func TestRecordEditBeforeMergeAppliesOnArrival(t *testing.T) {
	// GIVEN an edit recorded before the identity is held
	rs := flatRuleset("main", 50000, 90000)
	rec := billing.NewReconciler()
	id := billing.DraftID{RulesetID: "main", Year: 2026, Month: 1, Split: 0}
	rec.RecordEdit(id, billing.PendingEdit{Description: str("Consulting services")})

	// WHEN the identity shows up in a merge
	merged := rec.Merge(computeDraftSet(rs, 0))

	// THEN the edit is applied
	assert.Equal(t, "Consulting services", merged[0].Description)
}

func TestRecordEditAccumulatesFields(t *testing.T) {
	// GIVEN two partial edits on the same draft
	rs := flatRuleset("main", 50000, 90000)
	rec := billing.NewReconciler()
	drafts := rec.Merge(computeDraftSet(rs, 0))
	id := drafts[0].ID

	rec.RecordEdit(id, billing.PendingEdit{InvoiceNo: str("2026001")})
	rec.RecordEdit(id, billing.PendingEdit{VariableSymbol: str("26001")})

	// WHEN reading the held draft
	d, ok := rec.Draft(id)

	// THEN both fields are set
	require.True(t, ok)
	assert.Equal(t, "2026001", d.InvoiceNo)
	assert.Equal(t, "26001", d.VariableSymbol)
}

func TestMarkStatusUnknownDraft(t *testing.T) {
	rec := billing.NewReconciler()
	err := rec.MarkStatus(billing.DraftID{RulesetID: "ghost"}, billing.StatusDone, "")
	assert.ErrorIs(t, err, billing.ErrDraftNotFound)
}

func TestRestoreEditsSeedsSideTable(t *testing.T) {
	// GIVEN edits persisted from an earlier run
	rs := flatRuleset("main", 50000, 90000)
	rec := billing.NewReconciler()
	id := billing.DraftID{RulesetID: "main", Year: 2026, Month: 2, Split: 0}
	rec.RestoreEdits(map[billing.DraftID]billing.PendingEdit{
		id: {InvoiceNo: str("2026007")},
	})

	// WHEN the first merge runs
	merged := rec.Merge(computeDraftSet(rs, 0))

	// THEN the restored edit applies to its identity
	require.Len(t, merged, 2)
	assert.Equal(t, "2026007", merged[1].InvoiceNo)
}
