package tax

import (
	taxdomain "github.com/nexuscore/nexuscore/internal/tax/domain"
	"github.com/nexuscore/nexuscore/internal/tax/repository"
	"github.com/nexuscore/nexuscore/internal/tax/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tax.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(func(svc taxdomain.Service) taxdomain.Resolver { return svc }),
)
