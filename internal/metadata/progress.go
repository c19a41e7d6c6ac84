package metadata

// Phase identifies one stage of an extraction run. Phases are emitted in a
// fixed order; "error" is terminal and may replace any later phase.
type Phase string

const (
	PhaseConnecting  Phase = "connecting"
	PhaseSchemas     Phase = "schemas"
	PhaseTables      Phase = "tables"
	PhaseForeignKeys Phase = "foreign_keys"
	PhaseStoring     Phase = "storing"
	PhaseComplete    Phase = "complete"
	PhaseError       Phase = "error"
)

// Progress is one progress record. Percent values are monotonically
// non-decreasing within a successful run; an error record short-circuits the
// sequence and nothing follows it.
type Progress struct {
	Phase            Phase  `json:"phase"`
	Message          string `json:"message"`
	Progress         int    `json:"progress"` // 0-100
	TotalSchemas     int    `json:"total_schemas"`
	ProcessedSchemas int    `json:"processed_schemas"`
	TotalTables      int    `json:"total_tables"`
	ProcessedTables  int    `json:"processed_tables"`
	// Error is always present on the wire; empty means no failure.
	Error            string `json:"error"`

	// Result carries the accumulated snapshot on the orchestrator's final
	// "complete" record only. It is an in-process payload, never serialised.
	Result *Database `json:"-"`
}

// IsTerminal reports whether no further records follow this one.
func (p Progress) IsTerminal() bool {
	return p.Phase == PhaseComplete || p.Phase == PhaseError
}
