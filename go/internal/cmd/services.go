package main

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clubkit/clubkit/go/clients/rosterclient"
	"github.com/clubkit/clubkit/go/internal/attendance"
	"github.com/clubkit/clubkit/go/internal/config"
	"github.com/clubkit/clubkit/go/internal/gateway"
	"github.com/clubkit/clubkit/go/internal/schedule"
)

type Services struct {
	Schedule   *schedule.App
	Attendance *attendance.App
	Gateway    *gateway.Handler
}

func setupServices(pool *pgxpool.Pool, cfg *config.Config) *Services {
	// Wire up dependency injection chain
	// Database layer → Repository layer → App layer → Gateway layer
	rosterClient := rosterclient.New(cfg.Roster.BaseURL)

	scheduleRepo := schedule.NewRepository(pool)
	txManager := schedule.NewPostgresTxManager(pool)
	scheduleApp := schedule.NewApp(txManager, scheduleRepo, rosterClient)

	attendanceRepo := attendance.NewRepository(pool)
	attendanceApp := attendance.NewApp(attendanceRepo, scheduleRepo, rosterClient)

	return &Services{
		Schedule:   scheduleApp,
		Attendance: attendanceApp,
		Gateway:    gateway.NewHandler(scheduleApp, attendanceApp),
	}
}
