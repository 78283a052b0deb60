package item_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/campuskart-backend/internal/config"
	"github.com/vasiliy-maslov/campuskart-backend/internal/db"
	"github.com/vasiliy-maslov/campuskart-backend/internal/item"
	"github.com/vasiliy-maslov/campuskart-backend/internal/order"
)

// Live-database tests. They run only when DB_HOST_TEST is set and
// expect a throwaway database: every test truncates all tables.
var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	host := os.Getenv("DB_HOST_TEST")
	if host == "" {
		os.Exit(m.Run())
	}

	cfg := config.PostgresConfig{
		Host:           host,
		Port:           envOr("DB_PORT_TEST", "5432"),
		User:           envOr("DB_USER_TEST", "postgres"),
		Password:       os.Getenv("DB_PASSWORD_TEST"),
		DBName:         envOr("DB_NAME_TEST", "campuskart_test"),
		SSLMode:        envOr("DB_SSLMODE_TEST", "disable"),
		MigrationsPath: "../../migrations",
	}

	database, err := db.New(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to test database")
	}
	testPool = database.Pool

	code := m.Run()
	database.Close()
	os.Exit(code)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func setupRepo(t *testing.T) item.Repository {
	if testPool == nil {
		t.Skip("DB_HOST_TEST not set; skipping live database tests")
	}

	truncate := func() {
		_, err := testPool.Exec(context.Background(),
			`TRUNCATE TABLE orders, items, users RESTART IDENTITY CASCADE`)
		require.NoError(t, err)
	}
	truncate()
	t.Cleanup(truncate)

	return item.NewRepository(testPool)
}

func seedUser(t *testing.T, name, email string) int64 {
	var id int64
	err := testPool.QueryRow(context.Background(),
		`INSERT INTO users (name, email, password_hash) VALUES ($1, $2, 'x') RETURNING user_id`,
		name, email,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func TestPostgresRepository_CreateAndGet(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	sellerID := seedUser(t, "Priya", "priya@campus.test")

	id, err := repo.Create(ctx, &item.Item{
		SellerID: sellerID,
		Name:     "Scientific Calculator FX-991",
		Price:    600,
		Category: "electronics",
		Quantity: 4,
	})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Scientific Calculator FX-991", got.Name)
	assert.Equal(t, sellerID, got.SellerID)
	assert.Equal(t, 4, got.Quantity)
	assert.Equal(t, item.StatusAvailable, got.Status)

	_, err = repo.GetByID(ctx, id+1)
	assert.ErrorIs(t, err, item.ErrNotFound)
}

func TestPostgresRepository_Delete_NotOwner(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	sellerID := seedUser(t, "Priya", "priya@campus.test")
	otherID := seedUser(t, "Rahul", "rahul@campus.test")

	id, err := repo.Create(ctx, &item.Item{SellerID: sellerID, Name: "Desk Lamp", Price: 250, Quantity: 1})
	require.NoError(t, err)

	err = repo.Delete(ctx, id, otherID)
	assert.ErrorIs(t, err, item.ErrPermissionDenied)
}

func TestPostgresRepository_Delete_LockedByOpenOrder(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	sellerID := seedUser(t, "Priya", "priya@campus.test")
	buyerID := seedUser(t, "Rahul", "rahul@campus.test")

	id, err := repo.Create(ctx, &item.Item{SellerID: sellerID, Name: "Desk Lamp", Price: 250, Quantity: 3})
	require.NoError(t, err)

	store := order.NewStore(testPool)
	_, err = store.PlaceAll(ctx, buyerID, []order.Placement{
		{OrderID: "ORD-LOCK0001", ItemID: id, Quantity: 1, OTPHash: "03ac6742", PaymentMode: "COD"},
	})
	require.NoError(t, err)

	err = repo.Delete(ctx, id, sellerID)
	assert.ErrorIs(t, err, item.ErrItemLocked)

	_, err = repo.GetByID(ctx, id)
	assert.NoError(t, err, "locked item must survive the delete attempt")
}

// An item whose orders are all cancelled can be deleted; the cancelled
// order rows survive with their item reference nulled.
func TestPostgresRepository_Delete_AfterCancel(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	sellerID := seedUser(t, "Priya", "priya@campus.test")
	buyerID := seedUser(t, "Rahul", "rahul@campus.test")

	id, err := repo.Create(ctx, &item.Item{SellerID: sellerID, Name: "Desk Lamp", Price: 250, Quantity: 3})
	require.NoError(t, err)

	store := order.NewStore(testPool)
	_, err = store.PlaceAll(ctx, buyerID, []order.Placement{
		{OrderID: "ORD-CANC0001", ItemID: id, Quantity: 2, OTPHash: "03ac6742", PaymentMode: "COD"},
	})
	require.NoError(t, err)
	require.NoError(t, store.CancelAndRestock(ctx, "ORD-CANC0001", []order.Status{order.StatusPending}))

	err = repo.Delete(ctx, id, sellerID)
	require.NoError(t, err, "delete must succeed once every order is cancelled")

	_, err = repo.GetByID(ctx, id)
	assert.ErrorIs(t, err, item.ErrNotFound)

	o, err := store.GetByID(ctx, "ORD-CANC0001")
	require.NoError(t, err, "cancelled order row must survive the item delete")
	assert.Equal(t, order.StatusCancelled, o.Status)
	assert.Zero(t, o.ItemID)

	history, err := store.ListByBuyer(ctx, buyerID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Deleted item", history[0].ItemName)
}
