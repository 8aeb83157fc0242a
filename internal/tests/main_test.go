//go:build integration

package tests

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"rdw-inventory-api/internal"
	"rdw-inventory-api/internal/auth"
	"rdw-inventory-api/internal/config"
	"rdw-inventory-api/internal/testutil"
)

const testSecret = "supersecretkeyforintegrationtestingonly"

var (
	schemaOnce sync.Once
	testServer *internal.Server
	testDB     *sql.DB
	testPool   *pgxpool.Pool
)

// setup resets the schema once per run, empties every table for this test
// and returns the shared server.
func setup(t *testing.T) *internal.Server {
	t.Helper()
	testutil.RequireIntegration(t)

	schemaOnce.Do(func() {
		conn := testutil.NewTestDB(t)
		testutil.ResetSchema(t, conn)

		cfg := &config.Config{
			DatabaseURL: testutil.DSN(),
			DBMaxConns:  16,
			JWTSecret:   testSecret,
			JWTIssuer:   "rdw-inventory-api",
			JWTAudience: "rdw-inventory-api",
			JWTExpiry:   24 * time.Hour,
		}
		srv, err := internal.NewServer(context.Background(), cfg, zap.NewNop())
		if err != nil {
			t.Fatalf("Failed to create server: %v", err)
		}
		testServer = srv
		testDB = srv.DB
		testPool = srv.Pool
	})
	if testServer == nil {
		t.Fatal("server setup failed in an earlier test")
	}

	testutil.Truncate(t, testDB)
	return testServer
}

func bearer(t *testing.T, userID int64, role string) string {
	t.Helper()
	jwtManager := auth.NewJWTManager(testSecret, "rdw-inventory-api", "rdw-inventory-api", time.Hour)
	token, err := jwtManager.GenerateToken(userID, fmt.Sprintf("user%d", userID), role)
	if err != nil {
		t.Fatalf("Failed to generate test token: %v", err)
	}
	return "Bearer " + token
}

func authorize(t *testing.T, req *http.Request, userID int64, role string) *http.Request {
	req.Header.Set("Authorization", bearer(t, userID, role))
	return req
}
