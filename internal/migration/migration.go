package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	sessiondomain "github.com/smallbiznis/bursary/internal/academicsession/domain"
	auditdomain "github.com/smallbiznis/bursary/internal/audit/domain"
	billdomain "github.com/smallbiznis/bursary/internal/demandbill/domain"
	discountdomain "github.com/smallbiznis/bursary/internal/discount/domain"
	feepaymentdomain "github.com/smallbiznis/bursary/internal/feepayment/domain"
	feestructuredomain "github.com/smallbiznis/bursary/internal/feestructure/domain"
	feetypedomain "github.com/smallbiznis/bursary/internal/feetype/domain"
	ledgerdomain "github.com/smallbiznis/bursary/internal/ledger/domain"
	classdomain "github.com/smallbiznis/bursary/internal/schoolclass/domain"
	studentdomain "github.com/smallbiznis/bursary/internal/student/domain"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// RunMigrations applies the embedded Postgres migrations.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	return nil
}

// Models lists every persisted model in dependency order.
func Models() []any {
	return []any{
		&sessiondomain.AcademicSession{},
		&sessiondomain.ActiveSessionPointer{},
		&classdomain.SchoolClass{},
		&studentdomain.StudentDetails{},
		&studentdomain.StudentAcademicHistory{},
		&feetypedomain.FeeType{},
		&feestructuredomain.FeeStructure{},
		&feestructuredomain.FeeStructureItem{},
		&discountdomain.StudentFeeDiscount{},
		&billdomain.DemandBill{},
		&billdomain.DemandBillItem{},
		&feepaymentdomain.FeeTransaction{},
		&feepaymentdomain.FeePaymentDetail{},
		&ledgerdomain.LedgerAccount{},
		&ledgerdomain.LedgerEntry{},
		&ledgerdomain.LedgerEntryLine{},
		&auditdomain.AuditLog{},
	}
}

// AutoMigrate builds the schema from the models. It backs the sqlite and
// mysql dialects and the test databases.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}
	return db.AutoMigrate(Models()...)
}
