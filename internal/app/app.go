package app

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/orderpad/internal/cache"
	"github.com/Additional-Code/orderpad/internal/catalog"
	"github.com/Additional-Code/orderpad/internal/config"
	"github.com/Additional-Code/orderpad/internal/database"
	"github.com/Additional-Code/orderpad/internal/draft"
	"github.com/Additional-Code/orderpad/internal/feed"
	"github.com/Additional-Code/orderpad/internal/logger"
	"github.com/Additional-Code/orderpad/internal/observability"
	repositoryorder "github.com/Additional-Code/orderpad/internal/repository/order"
	httpserver "github.com/Additional-Code/orderpad/internal/server/http"
	serviceorder "github.com/Additional-Code/orderpad/internal/service/order"
	transporthttp "github.com/Additional-Code/orderpad/internal/transport/http"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	logger.Module,
	observability.Module,
	database.Module,
	cache.Module,
	feed.Module,
	draft.Module,
	catalog.Module,
	repositoryorder.Module,
	serviceorder.Module,
)

// HTTP wires the HTTP transport on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	transporthttp.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
