package idempotency

import (
	"github.com/nexuscore/nexuscore/internal/idempotency/repository"
	"github.com/nexuscore/nexuscore/internal/idempotency/service"
	"go.uber.org/fx"
)

var Module = fx.Module("idempotency.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
