// Package report turns the raw outputs of an evaluation pass into the
// consumer-facing report: recommendations are deduplicated, ordered, and
// numbered, while the alert list stays complete for auditability.
package report

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/venturelens/venturelens/pkg/domain"
)

type Assembler struct {
	lg *zap.Logger
}

func NewAssembler(lg *zap.Logger) *Assembler {
	return &Assembler{lg: lg}
}

// Assemble builds the report for one pass. Alerts are carried through
// untouched; recommendations are collapsed per (command, target) pair and
// ranked by severity, then by how far the observed value sits past its
// threshold.
func (a *Assembler) Assemble(snap *domain.NormalizedSnapshot, set *domain.MetricSet, alerts []domain.Alert, recs []domain.ActionRecommendation, duplicate bool) *domain.Report {
	ranked := rank(dedupe(recs))

	rpt := &domain.Report{
		ReportID:        uuid.NewString(),
		SnapshotID:      snap.SnapshotID,
		GameDay:         snap.GameDay,
		GeneratedAt:     time.Now().UTC(),
		Duplicate:       duplicate,
		Metrics:         set.Flatten(),
		Alerts:          alerts,
		Recommendations: ranked,
	}
	if rpt.Alerts == nil {
		rpt.Alerts = []domain.Alert{}
	}

	a.lg.Info("report assembled",
		zap.String("snapshot_id", snap.SnapshotID),
		zap.Int("game_day", snap.GameDay),
		zap.Int("alerts", len(rpt.Alerts)),
		zap.Int("recommendations", len(rpt.Recommendations)),
		zap.Bool("duplicate", duplicate))
	return rpt
}

// dedupe collapses recommendations that would issue the same command at
// the same target. The survivor is the most severe one; on a severity tie
// the one with the larger threshold excess wins. Order of first
// appearance is preserved for the survivors.
func dedupe(recs []domain.ActionRecommendation) []domain.ActionRecommendation {
	type key struct {
		command string
		target  domain.EntityKey
	}
	index := make(map[key]int)
	var out []domain.ActionRecommendation

	for _, rec := range recs {
		k := key{rec.Command, rec.Target}
		i, seen := index[k]
		if !seen {
			index[k] = len(out)
			out = append(out, rec)
			continue
		}
		held := out[i]
		if rec.Severity.Rank() > held.Severity.Rank() ||
			(rec.Severity.Rank() == held.Severity.Rank() && rec.Magnitude() > held.Magnitude()) {
			out[i] = rec
		}
	}
	return out
}

// rank orders recommendations most urgent first and numbers them from 1.
func rank(recs []domain.ActionRecommendation) []domain.ActionRecommendation {
	if recs == nil {
		return []domain.ActionRecommendation{}
	}
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Severity.Rank() != recs[j].Severity.Rank() {
			return recs[i].Severity.Rank() > recs[j].Severity.Rank()
		}
		return recs[i].Magnitude() > recs[j].Magnitude()
	})
	for i := range recs {
		recs[i].Priority = i + 1
	}
	return recs
}
