package testutil

import (
	"database/sql"
	"fmt"
	"os"
	"testing"

	_ "github.com/go-sql-driver/mysql"
)

// SetupTestDB abre la base de prueba.
// Espera un MySQL en localhost:3306 con una base 'tiffin_test'; TIFFIN_TEST_DSN la reemplaza.
func SetupTestDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("TIFFIN_TEST_DSN")
	if dsn == "" {
		dsn = "root:@tcp(localhost:3306)/tiffin_test?parseTime=true&loc=UTC"
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// Verify connection
	err = db.Ping()
	if err != nil {
		t.Skipf("test database not available: %v", err)
	}

	return db
}

// CleanupTestDB limpia la BD de prueba
func CleanupTestDB(t *testing.T, db *sql.DB) {
	if db == nil {
		return
	}

	tables := []string{"order_items", "orders", "profiles"}
	for _, table := range tables {
		_, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}

	db.Close()
}

// SetupTestTables crea las tablas necesarias para los tests
func SetupTestTables(t *testing.T, db *sql.DB) {
	createProfilesTable := `
	CREATE TABLE IF NOT EXISTS profiles (
		id CHAR(36) NOT NULL PRIMARY KEY,
		role VARCHAR(20) NOT NULL,
		display_name VARCHAR(150) NOT NULL DEFAULT ''
	)`

	createOrdersTable := `
	CREATE TABLE IF NOT EXISTS orders (
		id CHAR(36) NOT NULL PRIMARY KEY,
		customer_id CHAR(36) NOT NULL,
		vendor_id CHAR(36) NOT NULL,
		deliverer_id CHAR(36),
		total_price DECIMAL(10,2) NOT NULL DEFAULT 0.00,
		delivery_fee DECIMAL(10,2) NOT NULL DEFAULT 0.00,
		status VARCHAR(50) NOT NULL DEFAULT 'created',
		payment_method VARCHAR(50),
		delivery_address VARCHAR(255),
		delivery_lat DOUBLE,
		delivery_lng DOUBLE,
		created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		completed_at DATETIME(6),
		INDEX idx_vendor (vendor_id),
		INDEX idx_deliverer (deliverer_id),
		INDEX idx_customer (customer_id)
	)`

	createOrderItemsTable := `
	CREATE TABLE IF NOT EXISTS order_items (
		id INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		order_id CHAR(36) NOT NULL,
		product_id VARCHAR(64) NOT NULL,
		name VARCHAR(255) NOT NULL DEFAULT '',
		unit_price DECIMAL(10,2) NOT NULL,
		quantity INT NOT NULL DEFAULT 1,
		FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE,
		INDEX idx_order (order_id)
	)`

	tables := []struct {
		name  string
		query string
	}{
		{"profiles", createProfilesTable},
		{"orders", createOrdersTable},
		{"order_items", createOrderItemsTable},
	}

	for _, tbl := range tables {
		_, err := db.Exec(tbl.query)
		if err != nil {
			t.Logf("failed to create table %s: %v", tbl.name, err)
		}
	}
}
