//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bookcart/apiserver/config"
	"github.com/bookcart/apiserver/internal/server"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

const (
	serverPort = 18080
)

func TestMain(m *testing.M) {
	// Everything below, from the readiness ping to the server itself, builds
	// its DSN from config.LoadConfig, so the env must match the compose
	// database before the first load.
	setTestEnv()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	if err := dockerCompose(ctx, root, "up", "-d"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	if err := waitForPostgres(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := runMigrations(root); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srv, err := startServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown()
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown()
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

func TestCheckoutFlow(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	username := fmt.Sprintf("shopper_%d", time.Now().UnixNano())
	password := "testpass123!"

	if available := validateUserName(t, baseURL, username); !available {
		t.Fatalf("fresh username reported as taken")
	}

	registerUser(t, baseURL, username, password, http.StatusOK)

	if available := validateUserName(t, baseURL, username); available {
		t.Fatalf("registered username reported as available")
	}

	// A second registration with the same username must conflict.
	registerUser(t, baseURL, username, password, http.StatusConflict)

	token, userID := loginUser(t, baseURL, username, password)

	// Seeded catalog: book 1 twice, book 2 once.
	addToCart(t, baseURL, token, userID, 1)
	addToCart(t, baseURL, token, userID, 1)
	addToCart(t, baseURL, token, userID, 2)

	if count := cartItemCount(t, baseURL, userID); count != 3 {
		t.Fatalf("cart count = %d, want 3", count)
	}

	order := checkout(t, baseURL, token, userID, http.StatusOK)
	if len(order.OrderDetails) != 2 {
		t.Fatalf("got %d order lines, want 2", len(order.OrderDetails))
	}
	var wantTotal int64
	for _, line := range order.OrderDetails {
		wantTotal += line.PriceCents * int64(line.Quantity)
	}
	if order.TotalCents != wantTotal {
		t.Fatalf("total = %d, want %d", order.TotalCents, wantTotal)
	}

	if count := cartItemCount(t, baseURL, userID); count != 0 {
		t.Fatalf("cart count after checkout = %d, want 0", count)
	}

	// Checkout with an empty cart is a client error and creates no order.
	checkout(t, baseURL, token, userID, http.StatusBadRequest)

	orders := orderHistory(t, baseURL, token, userID)
	if len(orders) != 1 {
		t.Fatalf("order history length = %d, want 1", len(orders))
	}
	if orders[0].OrderID != order.OrderID {
		t.Fatalf("history order id = %d, want %d", orders[0].OrderID, order.OrderID)
	}
}

type orderResponse struct {
	OrderID      int         `json:"orderId"`
	TotalCents   int64       `json:"totalCents"`
	OrderDetails []orderLine `json:"orderDetails"`
}

type orderLine struct {
	BookID     int   `json:"bookId"`
	Quantity   int   `json:"quantity"`
	PriceCents int64 `json:"priceCents"`
}

type authResponse struct {
	Token string `json:"token"`
}

func registerUser(t *testing.T, baseURL, username, password string, wantStatus int) {
	t.Helper()

	payload := map[string]string{
		"firstName": "Test",
		"lastName":  "Shopper",
		"username":  username,
		"password":  password,
		"gender":    "Other",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal register payload: %v", err)
	}

	resp := doRequest(t, http.MethodPost, baseURL+"/api/user", "", bytes.NewReader(body))
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		msg, _ := io.ReadAll(resp.Body)
		t.Fatalf("register status %d, want %d: %s", resp.StatusCode, wantStatus, strings.TrimSpace(string(msg)))
	}
}

func loginUser(t *testing.T, baseURL, username, password string) (string, int) {
	t.Helper()

	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp := doRequest(t, http.MethodPost, baseURL+"/api/login", "", bytes.NewReader(body))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		t.Fatalf("login status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed authResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if parsed.Token == "" {
		t.Fatalf("missing token in login response")
	}

	userID, err := lookupUserID(username)
	if err != nil {
		t.Fatalf("lookup user id: %v", err)
	}
	return parsed.Token, userID
}

func validateUserName(t *testing.T, baseURL, username string) bool {
	t.Helper()

	resp := doRequest(t, http.MethodGet, baseURL+"/api/user/validateUserName/"+username, "", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("validateUserName status %d", resp.StatusCode)
	}
	var available bool
	if err := json.NewDecoder(resp.Body).Decode(&available); err != nil {
		t.Fatalf("decode validateUserName response: %v", err)
	}
	return available
}

func cartItemCount(t *testing.T, baseURL string, userID int) int {
	t.Helper()

	resp := doRequest(t, http.MethodGet, fmt.Sprintf("%s/api/user/%d", baseURL, userID), "", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cart count status %d", resp.StatusCode)
	}
	var count int
	if err := json.NewDecoder(resp.Body).Decode(&count); err != nil {
		t.Fatalf("decode cart count response: %v", err)
	}
	return count
}

func addToCart(t *testing.T, baseURL, token string, userID, bookID int) {
	t.Helper()

	url := fmt.Sprintf("%s/api/shoppingcart/%d/%d", baseURL, userID, bookID)
	resp := doRequest(t, http.MethodPost, url, token, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		t.Fatalf("add to cart status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
}

func checkout(t *testing.T, baseURL, token string, userID, wantStatus int) orderResponse {
	t.Helper()

	url := fmt.Sprintf("%s/api/checkout/%d", baseURL, userID)
	resp := doRequest(t, http.MethodPost, url, token, nil)
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		msg, _ := io.ReadAll(resp.Body)
		t.Fatalf("checkout status %d, want %d: %s", resp.StatusCode, wantStatus, strings.TrimSpace(string(msg)))
	}

	var parsed orderResponse
	if wantStatus == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			t.Fatalf("decode checkout response: %v", err)
		}
	}
	return parsed
}

func orderHistory(t *testing.T, baseURL, token string, userID int) []orderResponse {
	t.Helper()

	url := fmt.Sprintf("%s/api/order/%d", baseURL, userID)
	resp := doRequest(t, http.MethodGet, url, token, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("order history status %d", resp.StatusCode)
	}
	var parsed []orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode order history response: %v", err)
	}
	return parsed
}

func doRequest(t *testing.T, method, url, token string, body io.Reader) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func lookupUserID(username string) (int, error) {
	cfg := config.LoadConfig()
	dsn := buildPostgresURL(cfg)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var id int
	err = db.QueryRowContext(ctx, "SELECT id FROM users WHERE username = $1", username).Scan(&id)
	return id, err
}

func waitForPostgres(ctx context.Context) error {
	cfg := config.LoadConfig()
	dsn := buildPostgresURL(cfg)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

func runMigrations(root string) error {
	cfg := config.LoadConfig()
	dsn := buildPostgresURL(cfg)
	migrationsPath := filepath.Join(root, "internal", "db", "migrations")
	migrationsURL := "file://" + migrationsPath

	migrator, err := migrate.New(migrationsURL, dsn)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func buildPostgresURL(cfg config.Config) string {
	sslmode := "disable"
	if cfg.Database.UseSSL {
		sslmode = "require"
	}
	host := fmt.Sprintf("%s:%d", cfg.Database.Host, cfg.Database.Port)
	return fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		host,
		cfg.Database.DBName,
		sslmode,
	)
}

func setTestEnv() {
	_ = os.Setenv("JWT_SECRET", "test-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "bookcart")
	_ = os.Setenv("DB_PASSWORD", "bookcart")
	_ = os.Setenv("DB_NAME", "bookcart")
	_ = os.Setenv("DB_USE_SSL", "false")
}

func startServer() (*server.Server, error) {
	cfg := config.LoadConfig()
	srv, err := server.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	go func() {
		_ = srv.Start()
	}()

	return srv, nil
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
