package database

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3"
)

// Initialize creates and returns a database connection
func Initialize(databaseURL string) (*sql.DB, error) {
	// Add SQLite-specific parameters for better concurrent access
	if databaseURL == "kisan.db" {
		databaseURL = "kisan.db?_busy_timeout=30000&_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000&_foreign_keys=1"
	}

	db, err := sql.Open("sqlite3", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA busy_timeout = 30000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = 1000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA temp_store = memory",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			log.Printf("Warning: failed to set pragma %s: %v", pragma, err)
		}
	}

	log.Println("Database connection established successfully")
	return db, nil
}

// Migrate runs database migrations
func Migrate(db *sql.DB) error {
	migrations := []string{
		createUsersTable,
		createFarmerProfilesTable,
		createBuyerProfilesTable,
		createProductListingsTable,
		createFarmerGroupsTable,
		createFarmerGroupListingsTable,
		createOffersTable,
		createOfferVotesTable,
		createSupplyChainLogisticsTable,
		createNotificationsTable,
		createIndexes,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	log.Println("Database migrations completed successfully")
	return nil
}

// SQL migration statements
const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT UNIQUE NOT NULL,
    phone TEXT UNIQUE NOT NULL,
    first_name TEXT NOT NULL,
    last_name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    user_type TEXT NOT NULL DEFAULT 'farmer', -- 'farmer' or 'buyer'
    location_pin_code TEXT NOT NULL DEFAULT '',
    is_active BOOLEAN DEFAULT TRUE,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`

const createFarmerProfilesTable = `
CREATE TABLE IF NOT EXISTS farmer_profiles (
    user_id TEXT PRIMARY KEY,
    farm_size_acres REAL,
    primary_crops TEXT DEFAULT '', -- comma-separated list
    FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);`

const createBuyerProfilesTable = `
CREATE TABLE IF NOT EXISTS buyer_profiles (
    user_id TEXT PRIMARY KEY,
    business_name TEXT DEFAULT '',
    business_type TEXT DEFAULT '', -- 'wholesaler', 'retailer', 'restaurant'
    FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);`

const createProductListingsTable = `
CREATE TABLE IF NOT EXISTS product_listings (
    id TEXT PRIMARY KEY,
    farmer_id TEXT NOT NULL,
    product_name TEXT NOT NULL,
    quantity_kg REAL NOT NULL,
    price_expectation_per_kg REAL,
    location_pin_code TEXT NOT NULL,
    available_from DATE,
    available_until DATE,
    is_active BOOLEAN DEFAULT TRUE,
    group_id TEXT, -- set once by the grouper, never moved between groups
    embedding TEXT, -- JSON vector fingerprint
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (farmer_id) REFERENCES users(id),
    FOREIGN KEY (group_id) REFERENCES farmer_groups(id)
);`

const createFarmerGroupsTable = `
CREATE TABLE IF NOT EXISTS farmer_groups (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    leader_id TEXT NOT NULL,
    total_quantity_kg REAL NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'active', -- 'active', 'negotiating', 'deal_closed'
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (leader_id) REFERENCES users(id)
);`

const createFarmerGroupListingsTable = `
CREATE TABLE IF NOT EXISTS farmer_group_listings (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL,
    listing_id TEXT NOT NULL,
    FOREIGN KEY (group_id) REFERENCES farmer_groups(id),
    FOREIGN KEY (listing_id) REFERENCES product_listings(id),
    UNIQUE(listing_id) -- a listing belongs to at most one group, ever
);`

const createOffersTable = `
CREATE TABLE IF NOT EXISTS offers (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL,
    buyer_id TEXT NOT NULL,
    offered_price_per_kg REAL NOT NULL,
    offered_quantity_kg REAL NOT NULL,
    delivery_terms TEXT DEFAULT '',
    status TEXT NOT NULL DEFAULT 'pending', -- 'pending', 'accepted', 'rejected', 'countered'
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (group_id) REFERENCES farmer_groups(id),
    FOREIGN KEY (buyer_id) REFERENCES users(id)
);`

const createOfferVotesTable = `
CREATE TABLE IF NOT EXISTS offer_votes (
    id TEXT PRIMARY KEY,
    offer_id TEXT NOT NULL,
    farmer_id TEXT NOT NULL,
    choice TEXT NOT NULL, -- 'accept', 'reject', 'counter'
    comment TEXT DEFAULT '',
    voted_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (offer_id) REFERENCES offers(id),
    FOREIGN KEY (farmer_id) REFERENCES users(id),
    UNIQUE(offer_id, farmer_id) -- re-voting overwrites the prior vote
);`

const createSupplyChainLogisticsTable = `
CREATE TABLE IF NOT EXISTS supply_chain_logistics (
    id TEXT PRIMARY KEY,
    offer_id TEXT NOT NULL UNIQUE,
    group_id TEXT NOT NULL UNIQUE,
    meeting_point_lat REAL,
    meeting_point_lon REAL,
    optimal_route_json TEXT DEFAULT '',
    estimated_costs REAL DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (offer_id) REFERENCES offers(id),
    FOREIGN KEY (group_id) REFERENCES farmer_groups(id)
);`

const createNotificationsTable = `
CREATE TABLE IF NOT EXISTS notifications (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    type TEXT NOT NULL,
    title TEXT NOT NULL,
    message TEXT NOT NULL,
    data TEXT DEFAULT '{}', -- JSON data
    is_read BOOLEAN DEFAULT FALSE,
    read_at DATETIME,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (user_id) REFERENCES users(id)
);`

const createIndexes = `
CREATE INDEX IF NOT EXISTS idx_listings_farmer ON product_listings(farmer_id);
CREATE INDEX IF NOT EXISTS idx_listings_ungrouped ON product_listings(is_active, group_id);
CREATE INDEX IF NOT EXISTS idx_group_listings_group ON farmer_group_listings(group_id);
CREATE INDEX IF NOT EXISTS idx_offers_group ON offers(group_id);
CREATE INDEX IF NOT EXISTS idx_offer_votes_offer ON offer_votes(offer_id);
CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, is_read);`
