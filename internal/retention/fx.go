package retention

import (
	"github.com/nexuscore/nexuscore/internal/retention/service"
	"go.uber.org/fx"
)

var Module = fx.Module("retention.service",
	fx.Provide(service.NewService),
)
