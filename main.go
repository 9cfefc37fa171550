package main

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"pharmtrack/m/internal/api"
	"pharmtrack/m/internal/config"
	"pharmtrack/m/internal/database"
	"pharmtrack/m/internal/ledger"
	"pharmtrack/m/internal/migrations"
	"pharmtrack/m/internal/report"
	"pharmtrack/m/internal/restock"
	"pharmtrack/m/internal/seed"
	"pharmtrack/m/internal/store"
)

func main() {
	cfg := config.Load()

	log := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	db := database.Connect(cfg.DatabaseDSN)
	defer db.Close()
	migrations.Run(db)

	st := store.NewSQLStore(db)
	led := ledger.New(st)
	manager := restock.NewManager(st)
	builder := restock.NewBuilder(st, led)
	reports := report.New(st, manager)

	if cfg.SeedFile != "" && cfg.SeedPharmacy != "" {
		seed.LoadMedicines(context.Background(), led, cfg.SeedPharmacy, cfg.SeedFile)
	}

	handler := api.New(st, led, builder, manager, reports, cfg.Secret, log)

	log.Infof("pharmtrack server starting on :%s", cfg.HTTPPort)
	if err := http.ListenAndServe(":"+cfg.HTTPPort, handler.Router()); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
