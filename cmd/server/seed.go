package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/iliyamo/travel-seat-reservation/internal/config"
	"github.com/iliyamo/travel-seat-reservation/internal/model"
	"github.com/iliyamo/travel-seat-reservation/internal/repository"
)

// demoRoutes are scheduled for the next three days when DEMO_SEED is on.
var demoRoutes = []model.Departure{
	{RouteCode: "IST-ANK", Origin: "Istanbul", Destination: "Ankara", TransportType: "bus", TotalSeats: 40, SeatsPerRow: 4, PriceCents: 2500},
	{RouteCode: "IST-IZM", Origin: "Istanbul", Destination: "Izmir", TransportType: "train", TotalSeats: 60, SeatsPerRow: 4, PriceCents: 3200},
	{RouteCode: "ANK-AYT", Origin: "Ankara", Destination: "Antalya", TransportType: "flight", TotalSeats: 120, SeatsPerRow: 6, PriceCents: 8900},
}

// seedDemo schedules demo departures and the admin account.  Rows that
// already exist are left alone, so restarting against MySQL is harmless.
func seedDemo(ctx context.Context, cfg config.Config, st *storage, log *slog.Logger) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	created := 0
	for day := 1; day <= 3; day++ {
		for i, r := range demoRoutes {
			d := r
			d.DepartsAt = today.AddDate(0, 0, day).Add(time.Duration(8+3*i) * time.Hour)
			err := st.store.CreateDeparture(ctx, &d)
			switch {
			case err == nil:
				created++
			case errors.Is(err, repository.ErrDepartureExists):
			default:
				log.Warn("seed_departure_fail", "route", d.RouteCode, "error", err)
			}
		}
	}
	log.Info("seed_departures", "created", created)

	if cfg.AdminPassword == "" {
		return
	}
	id, err := st.users.Create(ctx, cfg.AdminEmail, cfg.AdminPassword, model.RoleAdmin, cfg.BcryptCost)
	switch {
	case err == nil:
		log.Info("seed_admin", "user_id", id, "email", cfg.AdminEmail)
	case errors.Is(err, repository.ErrEmailExists):
	default:
		log.Warn("seed_admin_fail", "error", err)
	}
}
