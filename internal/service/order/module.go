package order

import "go.uber.org/fx"

// Module provides the order editing service to the fx graph.
var Module = fx.Provide(NewService)
