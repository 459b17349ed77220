// Package dedupe classifies incoming transactions against already stored ones
// and ranks look-alike transactions for bulk categorization.
package dedupe

import (
	"sort"

	"github.com/Veraticus/spice-sift/internal/fingerprint"
	"github.com/Veraticus/spice-sift/internal/model"
	"github.com/Veraticus/spice-sift/internal/normalize"
	"github.com/Veraticus/spice-sift/internal/similarity"
)

// VerdictKind is the outcome of checking one incoming transaction.
type VerdictKind string

// Verdict kinds.
const (
	Unique         VerdictKind = "unique"
	ExactDuplicate VerdictKind = "exact_duplicate"
	NearDuplicate  VerdictKind = "near_duplicate"
)

// Verdict is the classification of a single incoming transaction.
type Verdict struct {
	Kind       VerdictKind
	ExistingID string  // Set for duplicates
	Score      float64 // Composite score for near duplicates, 1 for exact ones
}

// IsDuplicate reports whether the verdict is either kind of duplicate.
func (v Verdict) IsDuplicate() bool {
	return v.Kind == ExactDuplicate || v.Kind == NearDuplicate
}

// Duplicate pairs an incoming transaction with its verdict.
type Duplicate struct {
	Transaction model.Transaction
	Verdict     Verdict
}

// Classification partitions an incoming batch.
type Classification struct {
	Unique     []model.Transaction
	Duplicates []Duplicate
	Verdicts   []Verdict // One per incoming transaction, in input order
}

// HashCheck is the result of pre-checking one fingerprint.
type HashCheck struct {
	Hash        string
	ExistingID  string
	IsDuplicate bool
}

// Detector classifies transactions. The zero value only reports exact
// duplicates. A Detector holds no state between calls.
type Detector struct {
	// NearDuplicateThreshold enables near-duplicate matching when positive.
	// Candidates are compared only with stored transactions from the same
	// calendar day and currency.
	NearDuplicateThreshold float64
}

// NewDetector returns a detector with the given near-duplicate threshold.
func NewDetector(nearDuplicateThreshold float64) *Detector {
	return &Detector{NearDuplicateThreshold: nearDuplicateThreshold}
}

// Classify checks every incoming transaction against existing. It never
// modifies either slice. An empty corpus makes everything unique.
func (d *Detector) Classify(incoming, existing []model.Transaction) Classification {
	index := newIndex(existing)

	result := Classification{
		Verdicts: make([]Verdict, len(incoming)),
	}

	for i, txn := range incoming {
		verdict := d.verdictFor(txn, index)
		result.Verdicts[i] = verdict

		if verdict.IsDuplicate() {
			result.Duplicates = append(result.Duplicates, Duplicate{Transaction: txn, Verdict: verdict})
			continue
		}
		result.Unique = append(result.Unique, txn)
	}

	return result
}

func (d *Detector) verdictFor(txn model.Transaction, idx *index) Verdict {
	if id, ok := idx.byFingerprint[fingerprint.Of(txn)]; ok {
		return Verdict{Kind: ExactDuplicate, ExistingID: id, Score: 1}
	}

	if d.NearDuplicateThreshold <= 0 {
		return Verdict{Kind: Unique}
	}

	best := Verdict{Kind: Unique}
	for _, candidate := range idx.byDay[dayKey(txn)] {
		res := similarity.Composite(txn, candidate)
		if res.Score >= d.NearDuplicateThreshold && res.Score > best.Score {
			best = Verdict{Kind: NearDuplicate, ExistingID: candidate.ID, Score: res.Score}
		}
	}
	return best
}

// CheckHashes reports, for each precomputed fingerprint, whether it matches a
// transaction in existing. Output order follows hashes.
func CheckHashes(hashes []string, existing []model.Transaction) []HashCheck {
	index := newIndex(existing)

	out := make([]HashCheck, len(hashes))
	for i, h := range hashes {
		id, ok := index.byFingerprint[h]
		out[i] = HashCheck{Hash: h, ExistingID: id, IsDuplicate: ok}
	}
	return out
}

// index is the per-call lookup over the existing corpus.
type index struct {
	byFingerprint map[string]string
	byDay         map[string][]model.Transaction
}

// newIndex fingerprints existing once. Stored fingerprints are indexed next
// to recomputed ones so disambiguated keys from earlier batches still match.
func newIndex(existing []model.Transaction) *index {
	idx := &index{
		byFingerprint: make(map[string]string, len(existing)),
		byDay:         make(map[string][]model.Transaction),
	}
	for _, txn := range existing {
		if txn.Fingerprint != "" {
			addFirst(idx.byFingerprint, txn.Fingerprint, txn.ID)
		}
		addFirst(idx.byFingerprint, fingerprint.Of(txn), txn.ID)

		key := dayKey(txn)
		idx.byDay[key] = append(idx.byDay[key], txn)
	}
	return idx
}

func addFirst(m map[string]string, key, id string) {
	if _, ok := m[key]; !ok {
		m[key] = id
	}
}

func dayKey(txn model.Transaction) string {
	return txn.Day() + fingerprint.Separator + normalize.Currency(txn.Currency)
}

// SimilarOptions controls FindSimilar.
type SimilarOptions struct {
	// ExcludeID is skipped in the candidate pool in addition to the target.
	ExcludeID string
	// Threshold is exclusive: only scores strictly above it are returned.
	Threshold float64
	// IncludeCategorized keeps candidates that already have a category.
	IncludeCategorized bool
}

// DefaultSimilarThreshold is the minimum score FindSimilar keeps by default.
const DefaultSimilarThreshold = 0.3

// DefaultSimilarOptions returns the bulk-categorization defaults.
func DefaultSimilarOptions() SimilarOptions {
	return SimilarOptions{Threshold: DefaultSimilarThreshold}
}

// Match is one ranked FindSimilar result.
type Match struct {
	Transaction model.Transaction
	Result      similarity.Result
}

// FindSimilar ranks candidates by composite similarity to target, highest
// first. Scoring is pairwise edit distance, so callers with large pools should
// narrow them first (for example by date).
func FindSimilar(target model.Transaction, candidates []model.Transaction, opts SimilarOptions) []Match {
	var matches []Match
	for _, candidate := range candidates {
		if candidate.ID != "" && (candidate.ID == target.ID || candidate.ID == opts.ExcludeID) {
			continue
		}
		if !opts.IncludeCategorized && candidate.IsCategorized() {
			continue
		}

		res := similarity.Composite(target, candidate)
		if res.Score > opts.Threshold {
			matches = append(matches, Match{Transaction: candidate, Result: res})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Result.Score > matches[j].Result.Score
	})

	return matches
}
