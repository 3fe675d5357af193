package postgres

import (
	"context"

	"ssec-chat/internal/domain"
	"ssec-chat/internal/ports/output"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Compile-time check to ensure ExchangeRepository implements output.ExchangeRecorder
var _ output.ExchangeRecorder = (*ExchangeRepository)(nil)

// ExchangeRepository struct - Secondary/Driven adapter writing the exchange ledger to PostgreSQL
type ExchangeRepository struct {
	dbGorm *gorm.DB
}

// NewExchangeRepository func - Creates new PostgreSQL repository and migrates the schema
func NewExchangeRepository(dbGorm *gorm.DB) (*ExchangeRepository, error) {
	logrus.Info("Migrate database ...")
	if err := domain.MigrateDatabase(dbGorm); err != nil {
		logrus.Errorln(err)
		return nil, err
	}
	return &ExchangeRepository{
		dbGorm: dbGorm,
	}, nil
}

// Record func - Inserts one exchange row
func (p *ExchangeRepository) Record(ctx context.Context, record domain.ExchangeRecord) error {
	if p.dbGorm == nil {
		return domain.ErrDatabaseUnavailable
	}
	if err := p.dbGorm.WithContext(ctx).Create(&record).Error; err != nil {
		logrus.Errorln(err)
		return err
	}
	logrus.Debugf("Exchange %s recorded: outcome=%s duration=%dms", record.ID, record.Outcome, record.DurationMs)
	return nil
}

// Ping func - Checks the database connection for the health endpoint
func (p *ExchangeRepository) Ping(ctx context.Context) error {
	if p.dbGorm == nil {
		return domain.ErrDatabaseUnavailable
	}
	sqlDB, err := p.dbGorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
