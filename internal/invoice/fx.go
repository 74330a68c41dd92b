package invoice

import (
	"github.com/nexuscore/nexuscore/internal/invoice/repository"
	"github.com/nexuscore/nexuscore/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
