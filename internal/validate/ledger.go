package validate

import "github.com/starford/orgsynth/internal/models"

// Ledger accumulates issues over repair passes. Each issue is kept once, at
// the pass it was first seen, and carries its latest repair outcome. An
// unresolved edge and a dangling reference naming the same record and target
// are one finding: the record-level issue is kept.
type Ledger struct {
	keys   map[string]int
	refs   map[string]int
	issues []models.Issue
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{keys: make(map[string]int), refs: make(map[string]int)}
}

// Add merges the issues of one pass.
func (l *Ledger) Add(pass int, issues []models.Issue) {
	for _, is := range issues {
		k := is.Key()
		if i, ok := l.keys[k]; ok {
			// A later sighting carries the latest outcome; an issue seen
			// again unrepaired after a repair means the repair did not hold.
			l.issues[i].Kind = is.Kind
			l.issues[i].Repaired = is.Repaired
			l.issues[i].RepairAction = is.RepairAction
			continue
		}
		is.Pass = pass
		rk := danglingKey(is)
		if i, ok := l.refs[rk]; ok && rk != "" {
			if is.Kind == models.KindUnresolvedEdge {
				continue
			}
			if l.issues[i].Kind == models.KindUnresolvedEdge {
				delete(l.keys, l.issues[i].Key())
				l.keys[k] = i
				l.issues[i] = is
				continue
			}
		} else if rk != "" {
			l.refs[rk] = len(l.issues)
		}
		l.keys[k] = len(l.issues)
		l.issues = append(l.issues, is)
	}
}

// danglingKey identifies the missing target behind an unresolved edge or a
// reference error, or returns "" for other issues.
func danglingKey(is models.Issue) string {
	switch is.Kind {
	case models.KindUnresolvedEdge, models.KindReference, models.KindIntegrityRepairFailure:
	default:
		return ""
	}
	if is.Affected.IsZero() || is.Target.IsZero() {
		return ""
	}
	return is.Affected.String() + ">" + is.Target.String()
}

// Issues returns every recorded issue in first-seen order.
func (l *Ledger) Issues() []models.Issue {
	return l.issues
}

// Tally counts warnings, errors and repaired errors.
func (l *Ledger) Tally() (warnings, errors, repaired int) {
	for _, is := range l.issues {
		switch {
		case !is.IsError():
			warnings++
		case is.Repaired:
			errors++
			repaired++
		default:
			errors++
		}
	}
	return warnings, errors, repaired
}

// Residual returns errors that were never repaired.
func (l *Ledger) Residual() []models.Issue {
	var out []models.Issue
	for _, is := range l.issues {
		if is.IsError() && !is.Repaired {
			out = append(out, is)
		}
	}
	return out
}

// Blocking reports whether issues contain an unrepaired error.
func Blocking(issues []models.Issue) bool {
	for _, is := range issues {
		if is.IsError() && !is.Repaired {
			return true
		}
	}
	return false
}
