package audit

import (
	"github.com/nexuscore/nexuscore/internal/audit/repository"
	"github.com/nexuscore/nexuscore/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
