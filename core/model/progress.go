package model

// DispatchProgress tracks a technician driving to an accepted request.
type DispatchProgress struct {
	RequestID    string     `json:"request_id"`
	RemainingETA int        `json:"remaining_eta_seconds"`
	Location     Coordinate `json:"location"`
	Start        Coordinate `json:"start"`
	Step         int        `json:"step"`
	TotalSteps   float64    `json:"total_steps"`
	Arrived      bool       `json:"arrived"`
}
