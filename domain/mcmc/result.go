package mcmc

import (
	"time"

	"github.com/google/uuid"
)

// RunResult is the finished product of one sampling run: the thinned,
// flattened posterior chain plus the diagnostics that describe how it
// was obtained.
type RunResult struct {
	ID         uuid.UUID   `json:"id" db:"id"`
	Label      string      `json:"label" db:"label"`
	Ndim       int         `json:"ndim" db:"ndim"`
	Nwalkers   int         `json:"nwalkers" db:"nwalkers"`
	Ntemps     int         `json:"ntemps" db:"ntemps"`
	Iterations int         `json:"iterations" db:"iterations"`
	Burnin     int         `json:"burnin" db:"burnin"`
	ACL        int         `json:"acl" db:"acl"`
	AcceptMean float64     `json:"accept_mean" db:"accept_mean"`
	Samples    [][]float64 `json:"samples" db:"-"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
}

// Rows returns the number of posterior samples in the chain.
func (r *RunResult) Rows() int {
	return len(r.Samples)
}
