// Command seed bootstraps a fresh database with one account per role so the
// API is usable immediately after deployment.
package main

import (
	"context"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"garrison/pkg/auth"
	"garrison/pkg/db"
)

type seedUser struct {
	Username string
	Email    string
	FullName string
	Role     auth.Role
	Base     string
}

var seedUsers = []seedUser{
	{Username: "admin", Email: "admin@garrison.mil", FullName: "System Administrator", Role: auth.RoleAdmin, Base: "Alpha Base"},
	{Username: "commander", Email: "commander@garrison.mil", FullName: "Base Commander", Role: auth.RoleBaseCommander, Base: "Alpha Base"},
	{Username: "logistics", Email: "logistics@garrison.mil", FullName: "Logistics Officer", Role: auth.RoleLogisticsOfficer, Base: "Alpha Base"},
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	password := os.Getenv("SEED_PASSWORD")
	if password == "" {
		password = "password123"
		log.Println("SEED_PASSWORD not set, using default")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash seed password: %v", err)
	}

	pool := db.Connect()
	defer pool.Close()

	ctx := context.Background()
	seedAccounts(ctx, pool, string(hash))
	seedAssets(ctx, pool)

	log.Println("Seeding complete")
}

func seedAccounts(ctx context.Context, pool *pgxpool.Pool, hash string) {
	for _, u := range seedUsers {
		tag, err := pool.Exec(ctx,
			`INSERT INTO users (id, username, email, password_hash, full_name, role, base, is_active)
             VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
             ON CONFLICT (username) DO NOTHING`,
			uuid.NewString(), u.Username, u.Email, hash, u.FullName, u.Role, u.Base)
		if err != nil {
			log.Fatalf("seed user %s: %v", u.Username, err)
		}
		if tag.RowsAffected() == 0 {
			log.Printf("user %s already exists, skipped", u.Username)
		} else {
			log.Printf("created %s (%s) at %s", u.Username, u.Role, u.Base)
		}
	}
}

type seedAsset struct {
	AssetID      string
	Name         string
	Type         string
	Category     string
	SerialNumber string
	Price        float64
	Supplier     string
}

var seedAssetRows = []seedAsset{
	{AssetID: "AST001", Name: "M4 Carbine", Type: "WEAPON", Category: "Rifle", SerialNumber: "SN-M4-0001", Price: 1200, Supplier: "Colt Defense"},
	{AssetID: "AST002", Name: "Humvee M1151", Type: "VEHICLE", Category: "Light Utility", SerialNumber: "SN-HV-0001", Price: 220000, Supplier: "AM General"},
	{AssetID: "AST003", Name: "5.56mm Rounds (1000)", Type: "AMMUNITION", Category: "Small Arms", SerialNumber: "SN-AM-0001", Price: 400, Supplier: "Federal Premium"},
	{AssetID: "AST004", Name: "Night Vision Goggles", Type: "EQUIPMENT", Category: "Optics", SerialNumber: "SN-NV-0001", Price: 3500, Supplier: "L3Harris"},
}

func seedAssets(ctx context.Context, pool *pgxpool.Pool) {
	for _, a := range seedAssetRows {
		tag, err := pool.Exec(ctx,
			`INSERT INTO assets (id, asset_id, name, type, category, serial_number, current_base, status,
                 condition, purchase_date, purchase_price, supplier)
             VALUES ($1, $2, $3, $4, $5, $6, 'Alpha Base', 'AVAILABLE', 'NEW', NOW(), $7, $8)
             ON CONFLICT (asset_id) DO NOTHING`,
			uuid.NewString(), a.AssetID, a.Name, a.Type, a.Category, a.SerialNumber, a.Price, a.Supplier)
		if err != nil {
			log.Fatalf("seed asset %s: %v", a.AssetID, err)
		}
		if tag.RowsAffected() == 0 {
			log.Printf("asset %s already exists, skipped", a.AssetID)
		} else {
			log.Printf("created asset %s (%s)", a.AssetID, a.Name)
		}
	}
}
