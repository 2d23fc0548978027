package harness

// TraceEvent records one executed step: which replica did what, with
// which arguments, and what came back.
type TraceEvent struct {
	Replica string         `json:"replica,omitempty"`
	Action  string         `json:"action"`
	Args    map[string]any `json:"args,omitempty"`
	Result  any            `json:"result,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains every executed step in order. Golden comparison
	// runs over this plus State.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failure messages. Empty if Pass.
	Errors []string `json:"errors,omitempty"`

	// State holds the final record tables per replica, keyed
	// "replica/table". Populated for the tables assertions touch plus
	// anything listed in the scenario's snapshot section.
	State map[string]any `json:"state,omitempty"`
}

// NewResult creates an empty passing result.
func NewResult() *Result {
	return &Result{
		Pass:  true,
		Trace: []TraceEvent{},
		State: make(map[string]any),
	}
}

// AddError records an assertion failure and marks the result failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}
