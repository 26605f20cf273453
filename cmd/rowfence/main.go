package main

import (
	"context"
	"flag"
	"log"
	"os"
	"runtime/debug"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rowfence/rowfence/migrations"
	"github.com/rowfence/rowfence/modules/core/domain/entities/tenant"
	"github.com/rowfence/rowfence/pkg/application"
	"github.com/rowfence/rowfence/pkg/configuration"
	"github.com/rowfence/rowfence/pkg/eventbus"
	"github.com/rowfence/rowfence/pkg/schema"
)

func usage() {
	log.Println("usage: rowfence <migrate|provision> [flags]")
	os.Exit(2)
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	if len(os.Args) < 2 {
		usage()
	}

	conf := configuration.Use()
	logger := conf.Logger()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	pool, err := pgxpool.New(ctx, conf.Database.ConnectionString())
	if err != nil {
		logger.WithError(err).Fatal("failed to create database pool")
	}
	defer pool.Close()

	switch os.Args[1] {
	case "migrate":
		if err := migrations.Up(ctx, pool); err != nil {
			logger.WithError(err).Fatal("migrations failed")
		}
		logger.Info("migrations applied")
	case "provision":
		fs := flag.NewFlagSet("provision", flag.ExitOnError)
		name := fs.String("name", "", "tenant display name")
		slug := fs.String("slug", "", "tenant slug")
		tier := fs.String("tier", string(tenant.TierFree), "subscription tier")
		adminEmail := fs.String("admin-email", "", "email of the initial admin")
		_ = fs.Parse(os.Args[2:])

		registry, err := schema.Load(conf.SchemaRegistryPath)
		if err != nil {
			logger.WithError(err).Fatal("failed to load schema registry")
		}
		app, err := application.New(&application.ApplicationOptions{
			Pool:     pool,
			Registry: registry,
			EventBus: eventbus.NewEventPublisher(logger),
			Logger:   logger,
		})
		if err != nil {
			logger.WithError(err).Fatal("failed to build application")
		}

		baseCtx := app.Context(ctx)
		t, err := app.Tenants.Provision(baseCtx, *name, *slug, tenant.Tier(*tier))
		if err != nil {
			logger.WithError(err).Fatal("tenant provisioning failed")
		}
		logger.WithField("tenant_id", t.ID()).WithField("slug", t.Slug()).Info("tenant provisioned")

		if *adminEmail != "" {
			admin, err := app.Tenants.CreateInitialAdmin(baseCtx, t.ID(), *adminEmail)
			if err != nil {
				logger.WithError(err).Fatal("initial admin creation failed")
			}
			logger.WithField("principal_id", admin.ID()).Info("initial admin created")
		}
	default:
		usage()
	}
}
