package ports

import (
	"context"

	"gotemper/domain/mcmc"
)

// ChainRepository persists finished runs. The control loop itself never
// touches storage; callers that want durable chains save the returned
// result through this port.
type ChainRepository interface {
	SaveRun(ctx context.Context, run *mcmc.RunResult) error
	GetRun(ctx context.Context, id string) (*mcmc.RunResult, error)
}
