package app

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/talkincode/fabrica/config"
	"github.com/talkincode/fabrica/internal/admin"
	"github.com/talkincode/fabrica/internal/apiclient"
	"github.com/talkincode/fabrica/internal/cart"
	"github.com/talkincode/fabrica/internal/catalog"
	"github.com/talkincode/fabrica/internal/orders"
	"github.com/talkincode/fabrica/internal/session"
	"github.com/talkincode/fabrica/internal/works"
)

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SessionProvider provides the session store
type SessionProvider interface {
	Session() *session.Store
}

// CatalogProvider provides the catalog store
type CatalogProvider interface {
	Catalog() *catalog.Store
}

// WorksProvider provides the portfolio store
type WorksProvider interface {
	Works() *works.Store
}

// OrdersProvider provides order history and notifications
type OrdersProvider interface {
	Orders() *orders.Store
	Notifications() *orders.NotificationStore
}

// CartProvider provides the cart store
type CartProvider interface {
	Cart() *cart.Store
}

// AdminProvider provides the back-office service
type AdminProvider interface {
	Admin() *admin.Service
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// AppContext combines all provider interfaces for full application context.
// Consumers should depend on specific providers or this combined interface.
type AppContext interface {
	ConfigProvider
	SessionProvider
	CatalogProvider
	WorksProvider
	OrdersProvider
	CartProvider
	AdminProvider
	SchedulerProvider

	// Application lifecycle
	Api() *apiclient.Client
	Boot(ctx context.Context)
	Release()
}
