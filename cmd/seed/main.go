package main

import (
	"context"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/telecare/scheduling-engine/internal/availability"
	"github.com/telecare/scheduling-engine/internal/db"
	"github.com/telecare/scheduling-engine/internal/logging"
)

func main() {
	log := logging.New("seed", os.Getenv("APP_ENV"), "info")
	log.Info().Msg("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	if err := db.Migrate(context.Background(), pool); err != nil {
		log.Fatal().Err(err).Msg("apply schema")
	}

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedProviders(context.Background(), pool, 100, log); err != nil {
		log.Fatal().Err(err).Msg("seed providers")
	}
	if err := seedPatients(context.Background(), pool, 9000, log); err != nil {
		log.Fatal().Err(err).Msg("seed patients")
	}

	log.Info().Msg("seed complete")
}

func seedProviders(ctx context.Context, pool *pgxpool.Pool, count int, log zerolog.Logger) error {
	log.Info().Int("count", count).Msg("seeding providers")

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	store := availability.NewPgStore(pool)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	providerIDs := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := "Dr. " + gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]
		baseFee := int64(gofakeit.Number(6, 30)) * 100 // 600..3000 currency units

		_, err := tx.Exec(ctx, `
			INSERT INTO providers (id, name, specialty, base_fee, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, id, name, spec, baseFee)
		if err != nil {
			return err
		}
		providerIDs = append(providerIDs, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	// Templates go through the store so the same validation path as the
	// API exercises them.
	for _, id := range providerIDs {
		if err := store.Set(ctx, weeklyTemplate(id)); err != nil {
			return err
		}
	}

	log.Info().Msg("providers seeded")
	return nil
}

// weeklyTemplate mirrors the typical clinic week: Monday-Friday 09:00-17:00
// with a lunch break, Saturday mornings, Sundays off. In-person visits get a
// longer slot for some providers.
func weeklyTemplate(providerID uuid.UUID) *availability.Template {
	tpl := &availability.Template{
		ProviderID:          providerID,
		SlotDurationMinutes: 30,
	}
	for wd := 1; wd <= 5; wd++ {
		tpl.Days[wd] = availability.DayRule{
			Working: true,
			Start:   9 * 60,
			End:     17 * 60,
			Breaks: []availability.Break{
				{Start: 12 * 60, End: 13 * 60, Label: "lunch"},
			},
		}
	}
	tpl.Days[6] = availability.DayRule{
		Working: true,
		Start:   9 * 60,
		End:     13 * 60,
	}
	if gofakeit.Bool() {
		tpl.ModalityDurations = map[availability.Modality]int{
			availability.ModalityInPerson: 45,
		}
	}
	return tpl
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int, log zerolog.Logger) error {
	log.Info().Int("count", count).Msg("seeding patients")

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, id, name, email)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}
	}

	log.Info().Msg("patients seeded")
	return nil
}
