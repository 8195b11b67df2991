package relationships

import (
	"go.uber.org/fx"
)

// Module provides relationship domain dependencies.
var Module = fx.Module("relationships",
	fx.Provide(
		fx.Annotate(NewStore, fx.As(new(EdgeStore))),
		NewService,
		NewTraverser,
		NewPathfinder,
		NewHandler,
	),
	fx.Invoke(RegisterRoutes),
)
