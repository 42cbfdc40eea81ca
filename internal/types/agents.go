package types

// Agent names used in the activity log and as model-call labels.
// Specialists log under their display names.
const (
	AgentLead     = "Lead Researcher"
	AgentVerifier = "Verifier Agent"
	AgentSystem   = "System"
	AgentAnalyst  = "Analyst"
)
