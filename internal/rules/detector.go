package rules

import (
	"context"
	"fmt"

	"github.com/Veraticus/flagrant/internal/common"
	"github.com/Veraticus/flagrant/internal/model"
)

// Source supplies the transactions a Detector evaluates.
type Source interface {
	Load(ctx context.Context) ([]model.Transaction, error)
}

// Detector holds a loaded transaction set and the amount threshold.
// It is not safe for concurrent use.
type Detector struct {
	source    Source
	txns      []model.Transaction
	threshold float64
	loaded    bool
}

// NewDetector creates a detector that will read from source.
func NewDetector(source Source, threshold float64) *Detector {
	return &Detector{
		source:    source,
		threshold: threshold,
	}
}

// Load reads the dataset from the source, replacing any previously loaded rows.
func (d *Detector) Load(ctx context.Context) error {
	txns, err := d.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load transactions: %w", err)
	}

	d.txns = txns
	d.loaded = true

	common.LogInfo("Loaded transactions", common.Fields{"count": len(txns)})

	return nil
}

// Annotated evaluates every loaded row.
func (d *Detector) Annotated() ([]model.AnnotatedTransaction, error) {
	if !d.loaded {
		return nil, common.ErrNotLoaded
	}
	return Evaluate(d.txns, d.threshold)
}

// Flagged evaluates the loaded rows and returns only those that fired a rule.
func (d *Detector) Flagged() ([]model.AnnotatedTransaction, error) {
	annotated, err := d.Annotated()
	if err != nil {
		return nil, err
	}
	return Flagged(annotated), nil
}
