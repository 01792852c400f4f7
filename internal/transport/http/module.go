package http

import (
	"go.uber.org/fx"

	catalogtransport "github.com/Additional-Code/orderpad/internal/transport/http/catalog"
	sessiontransport "github.com/Additional-Code/orderpad/internal/transport/http/session"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	sessiontransport.Module,
	catalogtransport.Module,
)
