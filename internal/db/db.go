package db

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/andinosoft/contracting/internal/models"

	migrate "github.com/golang-migrate/migrate/v4"
	// Blank imports register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// AllModels lists every persistent model in migration-safe order.
func AllModels() []any {
	return []any{
		&models.Role{}, &models.User{}, &models.Organization{},
		&models.ContractType{}, &models.Contract{}, &models.ContractStatusRecord{},
		&models.ContractParty{}, &models.ContractDocument{},
		&models.Invoice{}, &models.InvoiceItem{}, &models.InvoiceStatusRecord{},
		&models.Approval{},
		&models.PaymentMethod{}, &models.Payment{}, &models.PaymentStatusRecord{},
		&models.Withholding{}, &models.PaymentSchedule{},
		&models.InvoiceSchedule{},
		&models.Revision{}, &models.AuditLog{},
	}
}

// Connect opens the database from the DSN. A DSN starting with "file:" or
// ending in ".db" selects sqlite (local development); anything else is
// treated as postgres.
func Connect(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_DSN is empty, check environment configuration")
	}
	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = logger.Info
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	dialector := postgres.Open(dsn)
	if strings.HasPrefix(dsn, "file:") || strings.HasSuffix(dsn, ".db") {
		dialector = sqlite.Open(dsn)
	}

	var db *gorm.DB
	var err error
	for i := 0; i < 10; i++ {
		db, err = gorm.Open(dialector, cfg)
		if err == nil {
			break
		}
		log.Warn().Err(err).Msg("retrying DB connection")
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}
	if pingErr := db.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}
	return db, nil
}

// ConnectAndMigrate connects and brings the schema up to date. SQL migrations
// run via golang-migrate when MIGRATIONS=1; otherwise AutoMigrate is used as
// a dev convenience, mirroring how the schema evolved so far.
func ConnectAndMigrate(dsn string) (*gorm.DB, error) {
	db, err := Connect(dsn)
	if err != nil {
		return nil, err
	}

	if v := strings.ToLower(os.Getenv("MIGRATIONS")); v == "1" || v == "true" || v == "yes" {
		if err := runSQLMigrations(dsn); err != nil {
			return nil, fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		for _, m := range AllModels() {
			if migErr := db.AutoMigrate(m); migErr != nil {
				return nil, fmt.Errorf("automigrate %T: %w", m, migErr)
			}
		}
	}

	if v := strings.ToLower(os.Getenv("DB_SEED")); v == "1" || v == "true" || v == "yes" {
		Seed(db)
	}
	return db, nil
}

// Seed inserts lookup rows that the application expects to exist.
func Seed(db *gorm.DB) {
	baseRoles := []models.Role{
		{Name: "admin", Description: "Full access"},
		{Name: "supervisor", Description: "Contract supervision"},
		{Name: "approver", Description: "Invoice approval"},
		{Name: "user", Description: "Standard access"},
	}
	for _, r := range baseRoles {
		var existing models.Role
		if err := db.Where("name = ?", r.Name).First(&existing).Error; err == gorm.ErrRecordNotFound {
			db.Create(&r)
		}
	}
	baseMethods := []models.PaymentMethod{
		{Name: "Bank transfer", Code: "TRANSFER"},
		{Name: "Check", Code: "CHECK"},
		{Name: "Cash", Code: "CASH"},
		{Name: "Card", Code: "CARD"},
	}
	for _, m := range baseMethods {
		var existing models.PaymentMethod
		if err := db.Where("code = ?", m.Code).First(&existing).Error; err == gorm.ErrRecordNotFound {
			db.Create(&m)
		}
	}
	baseTypes := []models.ContractType{
		{Name: "Service provision", Code: "PS"},
		{Name: "Supply", Code: "SUM"},
		{Name: "Consulting", Code: "CON"},
		{Name: "Public works", Code: "OBR"},
	}
	for _, t := range baseTypes {
		var existing models.ContractType
		if err := db.Where("code = ?", t.Code).First(&existing).Error; err == gorm.ErrRecordNotFound {
			db.Create(&t)
		}
	}
}

// runSQLMigrations executes migrations in ./migrations using the file source.
func runSQLMigrations(dsn string) error {
	m, err := migrate.New("file://migrations", dsn)
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
