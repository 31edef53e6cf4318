package webhook

import (
	"go.uber.org/fx"
)

// Module provides the inbound processor event router
var Module = fx.Options(
	fx.Provide(
		NewTable,
		NewRouter,
	),
)
