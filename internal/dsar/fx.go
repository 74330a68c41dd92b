package dsar

import (
	"github.com/nexuscore/nexuscore/internal/dsar/repository"
	"github.com/nexuscore/nexuscore/internal/dsar/service"
	"go.uber.org/fx"
)

var Module = fx.Module("dsar.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
