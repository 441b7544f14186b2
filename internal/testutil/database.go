package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// SetupTestDB opens the MySQL test database named by TEST_MYSQL_DSN
// (default bazaar_test on localhost) and skips the test when it is down.
func SetupTestDB(t *testing.T) *sql.DB {
	dsn := envOr("TEST_MYSQL_DSN", "root:@tcp(localhost:3306)/bazaar_test?parseTime=true")
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		t.Skipf("test database not available: %v", err)
	}

	return db
}

func CleanupTestDB(t *testing.T, db *sql.DB) {
	if db == nil {
		return
	}

	tables := []string{"OrderItems", "Orders", "Product"}
	for _, table := range tables {
		_, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}

	db.Close()
}

func SetupTestTables(t *testing.T, db *sql.DB) {
	createProductTable := `
	CREATE TABLE IF NOT EXISTS Product (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		price DECIMAL(12,2) NOT NULL,
		quantity INT NOT NULL DEFAULT 10,
		createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updatedAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		CONSTRAINT chk_quantity CHECK (quantity >= 0)
	)`

	createOrdersTable := `
	CREATE TABLE IF NOT EXISTS Orders (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		userId VARCHAR(64) NOT NULL,
		totalAmount DECIMAL(12,2) NOT NULL,
		shippingAddress VARCHAR(255) NOT NULL,
		paymentMethod VARCHAR(10) NOT NULL,
		deliveryCharge DECIMAL(12,2) NOT NULL DEFAULT 100.00,
		isPaid TINYINT(1) NOT NULL DEFAULT 0,
		status VARCHAR(20) NOT NULL DEFAULT 'Pending',
		createdAt DATETIME(3) NOT NULL,
		updatedAt DATETIME(3) NOT NULL,
		INDEX idx_user_created (userId, createdAt)
	)`

	createOrderItemsTable := `
	CREATE TABLE IF NOT EXISTS OrderItems (
		id INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		orderId VARCHAR(36) NOT NULL,
		productId VARCHAR(36) NOT NULL,
		title VARCHAR(255) NOT NULL DEFAULT '',
		quantity INT NOT NULL,
		price DECIMAL(12,2) NOT NULL,
		FOREIGN KEY (orderId) REFERENCES Orders(id) ON DELETE CASCADE,
		INDEX idx_order (orderId)
	)`

	tables := []struct {
		name  string
		query string
	}{
		{"Product", createProductTable},
		{"Orders", createOrdersTable},
		{"OrderItems", createOrderItemsTable},
	}

	for _, tbl := range tables {
		_, err := db.Exec(tbl.query)
		if err != nil {
			t.Logf("failed to create table %s: %v", tbl.name, err)
		}
	}
}

// SetupTestMongo returns a fresh database on TEST_MONGO_URI, dropped when the
// test ends. Skips when MongoDB is not reachable.
func SetupTestMongo(t *testing.T) *mongo.Database {
	uri := envOr("TEST_MONGO_URI", "mongodb://localhost:27017")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerSelectionTimeout(2*time.Second))
	if err != nil {
		t.Skipf("test mongo not available: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		t.Skipf("test mongo not available: %v", err)
	}

	db := client.Database(fmt.Sprintf("bazaar_test_%d", time.Now().UnixNano()))
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})

	return db
}

// SetupTestRedis connects to TEST_REDIS_URL and flushes the selected
// database before and after the test. Skips when Redis is not reachable.
func SetupTestRedis(t *testing.T) *redis.Client {
	opts, err := redis.ParseURL(envOr("TEST_REDIS_URL", "redis://localhost:6379/15"))
	if err != nil {
		t.Fatalf("invalid TEST_REDIS_URL: %v", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("test redis not available: %v", err)
	}

	client.FlushDB(ctx)
	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}
