package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// OtpRevocationModel is a row of the otp_revocation table.
type OtpRevocationModel struct {
	ID               string    `gorm:"type:uuid;primaryKey"`
	Jti              string    `gorm:"uniqueIndex;not null"`
	CreationDateTime time.Time `gorm:"not null"`
}

// TableName pins the table name.
func (OtpRevocationModel) TableName() string {
	return "otp_revocation"
}

// PostgresLedger reads revoked ids from the otp_revocation table.
type PostgresLedger struct {
	db *gorm.DB
}

// NewPostgresLedger wraps an open gorm connection.
func NewPostgresLedger(db *gorm.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// OpenPostgresLedger connects to Postgres and optionally migrates the table.
func OpenPostgresLedger(ctx context.Context, cfg *PostgresConfig) (*PostgresLedger, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	l := NewPostgresLedger(db)
	if cfg.AutoMigrate {
		if err := l.Migrate(ctx); err != nil {
			_ = l.Close()
			return nil, err
		}
	}
	return l, nil
}

// Migrate creates or updates the otp_revocation table.
func (l *PostgresLedger) Migrate(ctx context.Context) error {
	if err := l.db.WithContext(ctx).AutoMigrate(&OtpRevocationModel{}); err != nil {
		return fmt.Errorf("migrate otp_revocation: %w", err)
	}
	return nil
}

// CurrentRevokedIDs selects every jti in the table.
func (l *PostgresLedger) CurrentRevokedIDs(ctx context.Context) (Set, error) {
	if l.db == nil {
		return nil, ErrUnavailable
	}

	var ids []string
	err := l.db.WithContext(ctx).
		Model(&OtpRevocationModel{}).
		Pluck("jti", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("read revoked ids from postgres: %w", err)
	}
	return NewSet(ids...), nil
}

// Revoke inserts tokenID, ignoring ids that are already revoked.
func (l *PostgresLedger) Revoke(ctx context.Context, tokenID string) error {
	if l.db == nil {
		return ErrUnavailable
	}

	model := OtpRevocationModel{
		ID:               uuid.NewString(),
		Jti:              tokenID,
		CreationDateTime: time.Now().UTC(),
	}
	err := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "jti"}}, DoNothing: true}).
		Create(&model).Error
	if err != nil {
		return fmt.Errorf("revoke token id in postgres: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (l *PostgresLedger) Ping(ctx context.Context) error {
	if l.db == nil {
		return ErrUnavailable
	}
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (l *PostgresLedger) Close() error {
	if l.db == nil {
		return nil
	}
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
