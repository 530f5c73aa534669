package sample

import (
	"github.com/gocarina/gocsv"

	"github.com/zephyr-dassouli/DVRE-sub007/al-go/config"
	"github.com/zephyr-dassouli/DVRE-sub007/al-golib/fileutil"
)

// Reconcile merges newly labeled samples into the cumulative labeled set.
// Duplicates (exact feature-vector equality, label excluded) are never added,
// so reconciling the same batch twice is idempotent. Addition order is
// preserved. A label outside the declared label space aborts with a
// DataIntegrityError before any sample is merged.
func Reconcile(current []Labeled, incoming []Labeled, space config.LabelSpace) (merged, added []Labeled, err error) {
	for _, in := range incoming {
		if !space.Contains(in.Label) {
			return nil, nil, &DataIntegrityError{ID: in.ID, Label: in.Label}
		}
	}

	seen := make(map[string]bool, len(current)+len(incoming))
	merged = make([]Labeled, 0, len(current)+len(incoming))
	for _, l := range current {
		key := FeatureKey(l.Features)
		if seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, l)
	}

	for _, in := range incoming {
		key := FeatureKey(in.Features)
		if seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, in)
		added = append(added, in)
	}
	return merged, added, nil
}

// AuditRecord is one row of the per-round reconciliation audit file.
type AuditRecord struct {
	OriginalIndex int    `csv:"original_index"`
	Label         string `csv:"label"`
	SourceRound   int    `csv:"source_round"`
	FeatureCount  int    `csv:"feature_count"`
}

// WriteAudit records which samples a round actually added, for monitoring.
// The audit file is informational and sits outside the round's atomic
// artifact set.
func (s *Store) WriteAudit(path string, added []Labeled) error {
	records := make([]AuditRecord, 0, len(added))
	for _, l := range added {
		records = append(records, AuditRecord{
			OriginalIndex: l.ID,
			Label:         l.Label,
			SourceRound:   l.SourceRound,
			FeatureCount:  len(l.Features),
		})
	}
	w, err := fileutil.NewBufferedWriter(s.fs, path)
	if err != nil {
		return err
	}
	defer w.Close()
	return gocsv.Marshal(&records, w)
}
