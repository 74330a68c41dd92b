package consent

import (
	"github.com/nexuscore/nexuscore/internal/consent/repository"
	"github.com/nexuscore/nexuscore/internal/consent/service"
	"go.uber.org/fx"
)

var Module = fx.Module("consent.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
