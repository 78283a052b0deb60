// Command seed loads development fixtures from a YAML file into the
// database. Passwords in the fixture file are plaintext and get
// bcrypt-hashed on insert, so seeded accounts can log in normally.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

type fixtures struct {
	Users []struct {
		Name     string `yaml:"name"`
		Email    string `yaml:"email"`
		Password string `yaml:"password"`
	} `yaml:"users"`
	Items []struct {
		SellerEmail string  `yaml:"seller_email"`
		Name        string  `yaml:"name"`
		Description string  `yaml:"description"`
		Price       float64 `yaml:"price"`
		Category    string  `yaml:"category"`
		Quantity    int     `yaml:"quantity"`
	} `yaml:"items"`
}

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		fixturePath = flag.String("fixtures", "fixtures/seed.yaml", "path to the YAML fixture file")
		dsn         = flag.String("dsn", os.Getenv("DATABASE_URL"), "postgres connection string")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal().Msg("No DSN: pass -dsn or set DATABASE_URL")
	}

	raw, err := os.ReadFile(*fixturePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *fixturePath).Msg("Failed to read fixture file")
	}

	var fx fixtures
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		log.Fatal().Err(err).Msg("Failed to parse fixture file")
	}

	dbConn, err := sqlx.Connect("postgres", *dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbConn.Close()

	if err := load(dbConn, fx); err != nil {
		log.Fatal().Err(err).Msg("Seeding failed")
	}
	log.Info().Int("users", len(fx.Users)).Int("items", len(fx.Items)).Msg("Fixtures loaded")
}

func load(db *sqlx.DB, fx fixtures) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	userIDs := make(map[string]int64, len(fx.Users))

	for _, u := range fx.Users {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", u.Email, err)
		}

		var id int64
		err = tx.QueryRow(`
			INSERT INTO users (name, email, password_hash)
			VALUES ($1, $2, $3)
			ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name
			RETURNING user_id`,
			u.Name, u.Email, string(hash),
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert user %s: %w", u.Email, err)
		}
		userIDs[u.Email] = id
	}

	for _, it := range fx.Items {
		sellerID, ok := userIDs[it.SellerEmail]
		if !ok {
			return fmt.Errorf("item %q references unknown seller %s", it.Name, it.SellerEmail)
		}

		_, err := tx.Exec(`
			INSERT INTO items (seller_id, name, description, price, category, quantity, status)
			VALUES ($1, $2, $3, $4, $5, $6, 'available')`,
			sellerID, it.Name, it.Description, it.Price, it.Category, it.Quantity,
		)
		if err != nil {
			return fmt.Errorf("insert item %q: %w", it.Name, err)
		}
	}

	return tx.Commit()
}
