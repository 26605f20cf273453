// Package application wires the schema registry, policy evaluator, stores
// and services into a single root object.
package application

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	accesspersistence "github.com/rowfence/rowfence/modules/access/infrastructure/persistence"
	accessservices "github.com/rowfence/rowfence/modules/access/services"
	corepersistence "github.com/rowfence/rowfence/modules/core/infrastructure/persistence"
	coreservices "github.com/rowfence/rowfence/modules/core/services"
	"github.com/rowfence/rowfence/pkg/composables"
	"github.com/rowfence/rowfence/pkg/eventbus"
	"github.com/rowfence/rowfence/pkg/policy"
	"github.com/rowfence/rowfence/pkg/schema"
)

type ApplicationOptions struct {
	Pool     *pgxpool.Pool
	Registry *schema.Registry
	EventBus eventbus.EventBus
	Logger   *logrus.Logger
}

// Application owns every service of the module. All data access flows
// through Gateway; Contexts is the only way to mint an operation context.
type Application struct {
	pool     *pgxpool.Pool
	registry *schema.Registry
	eventBus eventbus.EventBus
	logger   *logrus.Logger

	Contexts *coreservices.ContextService
	Tenants  *coreservices.TenantService
	Audit    *coreservices.AuditService
	Gateway  *accessservices.Gateway
}

func New(opts *ApplicationOptions) (*Application, error) {
	registry := opts.Registry
	if registry == nil {
		registry = schema.Default()
	}

	evaluator, err := policy.NewEvaluator(registry)
	if err != nil {
		return nil, err
	}

	tenants := corepersistence.NewTenantRepository()
	principals := corepersistence.NewPrincipalRepository()
	auditLogs := corepersistence.NewAuditLogRepository()

	audit := coreservices.NewAuditService(auditLogs)
	app := &Application{
		pool:     opts.Pool,
		registry: registry,
		eventBus: opts.EventBus,
		logger:   opts.Logger,
		Contexts: coreservices.NewContextService(principals, audit),
		Tenants:  coreservices.NewTenantService(tenants, principals),
		Audit:    audit,
		Gateway: accessservices.NewGateway(
			registry,
			evaluator,
			accesspersistence.NewPgRecordStore(),
			accesspersistence.NewPgTransactor(),
			audit,
			opts.EventBus,
		),
	}
	return app, nil
}

func (a *Application) Registry() *schema.Registry { return a.registry }

func (a *Application) EventBus() eventbus.EventBus { return a.eventBus }

// Context returns a base context carrying the pool and logger. Services
// derive their transactional contexts from it.
func (a *Application) Context(ctx context.Context) context.Context {
	ctx = composables.WithPool(ctx, a.pool)
	if a.logger != nil {
		ctx = composables.WithLogger(ctx, logrus.NewEntry(a.logger))
	}
	return ctx
}
