package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/turnitos/turnitos-backend/internal/booking"
	"github.com/turnitos/turnitos-backend/internal/db"
)

// Seeds a handful of demo businesses with catalogs, default opening
// hours and a spread of future appointments. Every business logs in
// with the password "turnitos-demo".
func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedBusinesses(context.Background(), pool, 20); err != nil {
		log.Fatalf("seed businesses: %v", err)
	}

	log.Println("seed complete")
}

type serviceRow struct {
	id       uuid.UUID
	name     string
	duration int
	price    float64
}

func seedBusinesses(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d businesses", count)

	hash, err := bcrypt.GenerateFromPassword([]byte("turnitos-demo"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	serviceNames := []string{
		"Haircut",
		"Beard Trim",
		"Manicure",
		"Pedicure",
		"Facial",
		"Massage",
		"Hair Coloring",
		"Waxing",
	}

	now := time.Now().UTC()

	for i := 0; i < count; i++ {
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		bizID := uuid.New()
		name := gofakeit.Company()
		email := strings.ToLower(gofakeit.Email())
		slug := slugify(name) + "-" + bizID.String()[:8]

		_, err = tx.Exec(ctx, `
			INSERT INTO businesses (id, email, password_hash, name, slug, trial_ends_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		`, bizID, email, string(hash), name, slug, now.AddDate(0, 0, 7))
		if err != nil {
			_ = tx.Rollback(ctx)
			return err
		}

		for _, rule := range booking.DefaultWeek(bizID) {
			_, err = tx.Exec(ctx, `
				INSERT INTO business_hours (business_id, weekday, is_open, open_minute, close_minute)
				VALUES ($1, $2, $3, $4, $5)
			`, bizID, rule.Weekday, rule.IsOpen, rule.OpenMinute, rule.CloseMinute)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		var services []serviceRow
		nServices := gofakeit.Number(2, 5)
		for j := 0; j < nServices; j++ {
			svc := serviceRow{
				id:       uuid.New(),
				name:     serviceNames[gofakeit.Number(0, len(serviceNames)-1)],
				duration: []int{30, 60, 90}[gofakeit.Number(0, 2)],
				price:    float64(gofakeit.Number(10, 120)),
			}
			_, err = tx.Exec(ctx, `
				INSERT INTO services (id, business_id, name, description, duration_minutes, price, active, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, TRUE, now(), now())
			`, svc.id, bizID, svc.name, gofakeit.Sentence(8), svc.duration, svc.price)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
			services = append(services, svc)
		}

		if err := seedAppointments(ctx, tx, bizID, services, now); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("seeded business %d/%d: %s (%s)", i+1, count, name, slug)
	}

	log.Println("businesses seeded")
	return nil
}

// seedAppointments books a few non-overlapping future slots per
// business. Slots are spaced two hours apart so seeded rows never
// trip the overlap check regardless of service duration.
func seedAppointments(ctx context.Context, tx pgx.Tx, bizID uuid.UUID, services []serviceRow, now time.Time) error {
	if len(services) == 0 {
		return nil
	}

	statuses := []string{"pending", "confirmed", "pending"}

	for day := 1; day <= 3; day++ {
		date := now.AddDate(0, 0, day)
		if booking.WeekdayIndex(date) > 4 {
			continue
		}

		nAppts := gofakeit.Number(1, 3)
		for k := 0; k < nAppts; k++ {
			svc := services[gofakeit.Number(0, len(services)-1)]
			startMinute := 9*60 + k*120

			_, err := tx.Exec(ctx, `
				INSERT INTO appointments (id, business_id, service_id, service_name, client_name, client_phone, client_email, scheduled_on, start_minute, status, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
			`, uuid.New(), bizID, svc.id, svc.name,
				gofakeit.Name(), gofakeit.Phone(), strings.ToLower(gofakeit.Email()),
				date, startMinute, statuses[gofakeit.Number(0, len(statuses)-1)])
			if err != nil {
				return err
			}
		}
	}

	return nil
}

func slugify(name string) string {
	s := strings.ToLower(name)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if len(out) < 3 {
		out = "biz"
	}
	return out
}
