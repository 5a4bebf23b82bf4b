package models

// Severity of an issue.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// IssueKind classifies a validation finding.
type IssueKind string

const (
	KindReference              IssueKind = "ReferenceError"
	KindTemporalOrder          IssueKind = "TemporalOrderError"
	KindContentQuality         IssueKind = "ContentQuality"
	KindFormat                 IssueKind = "FormatError"
	KindUnresolvedEdge         IssueKind = "UnresolvedEdge"
	KindInvalidEdge            IssueKind = "InvalidEdge"
	KindIntegrityRepairFailure IssueKind = "IntegrityRepairFailure"
)

// Repair actions.
const (
	ActionNone          = ""
	ActionFieldRemoved  = "field_removed"
	ActionRecordDropped = "record_dropped"
	ActionTimeClamped   = "time_clamped"
	ActionEdgeDropped   = "edge_dropped"
	ActionEvidencePrune = "evidence_removed"
)

// Issue is a single validation finding. Affected is the offending record; for
// edge and overlap findings Edge or Overlap holds the id instead.
type Issue struct {
	Severity     Severity  `json:"severity"`
	Kind         IssueKind `json:"kind"`
	Affected     Ref       `json:"affected,omitzero"`
	Edge         string    `json:"edge_id,omitempty"`
	Overlap      string    `json:"overlap_id,omitempty"`
	Field        string    `json:"field,omitempty"`
	Target       Ref       `json:"target,omitzero"`
	Detail       string    `json:"detail"`
	RepairAction string    `json:"repair_action,omitempty"`
	Repaired     bool      `json:"repaired"`
	Pass         int       `json:"pass"`
}

// IsError reports whether the issue blocks finalisation until repaired.
func (i Issue) IsError() bool {
	return i.Severity == SeverityError
}

// Key identifies an issue for deduplication across passes. The kind is left
// out so a re-tagged issue keeps its identity.
func (i Issue) Key() string {
	return string(i.Severity) + "|" + i.Affected.String() + "|" + i.Edge + "|" + i.Overlap + "|" + i.Field + "|" + i.Target.String()
}
