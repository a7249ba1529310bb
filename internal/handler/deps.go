package handler

import (
	"messenger/internal/app/realtime"
	"messenger/internal/app/service"
	"messenger/internal/app/store"
	"messenger/internal/configs"
	"messenger/internal/pkg/pow"
)

type AppDeps struct {
	Config   *configs.AppConfig
	Services *service.Services
	Hub      *realtime.Hub
	PoW      *pow.PoWManager

	// Store is only used for health checks; handlers go through Services.
	Store store.Store
}
