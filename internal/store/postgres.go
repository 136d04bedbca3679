package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// pgUniqueViolation is the Postgres SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// Open connects to Postgres.
func Open(dsn string, logger *otelzap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         newGormLogger(logger),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the tables and indexes.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&Setting{}, &Consignment{}); err != nil {
		return fmt.Errorf("migrating: %w", err)
	}
	return nil
}

// PostgresRepository implements Repository with gorm.
type PostgresRepository struct {
	db *gorm.DB
}

// NewPostgresRepository creates a repository on db.
func NewPostgresRepository(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FirstSetting returns the oldest live settings row.
func (r *PostgresRepository) FirstSetting(ctx context.Context) (*Setting, error) {
	var s Setting
	if err := r.db.WithContext(ctx).Order("created_at ASC").First(&s).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

// CreateSetting inserts a settings row.
func (r *PostgresRepository) CreateSetting(ctx context.Context, s *Setting) error {
	return translate(r.db.WithContext(ctx).Create(s).Error)
}

// SaveSetting updates every column of a settings row.
func (r *PostgresRepository) SaveSetting(ctx context.Context, s *Setting) error {
	return translate(r.db.WithContext(ctx).Save(s).Error)
}

// CreateConsignment inserts a consignment.
func (r *PostgresRepository) CreateConsignment(ctx context.Context, c *Consignment) error {
	return translate(r.db.WithContext(ctx).Create(c).Error)
}

// SaveConsignment updates every column of a consignment.
func (r *PostgresRepository) SaveConsignment(ctx context.Context, c *Consignment) error {
	return translate(r.db.WithContext(ctx).Save(c).Error)
}

// GetConsignment loads a consignment by id.
func (r *PostgresRepository) GetConsignment(ctx context.Context, id string) (*Consignment, error) {
	var c Consignment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// FindConsignmentByOrder loads the live consignment of an order.
func (r *PostgresRepository) FindConsignmentByOrder(ctx context.Context, orderID string) (*Consignment, error) {
	var c Consignment
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// ListConsignments returns a page of consignments, newest first, and the
// total number of matches.
func (r *PostgresRepository) ListConsignments(ctx context.Context, filter ConsignmentFilter, page Page) ([]Consignment, int64, error) {
	q := r.db.WithContext(ctx).Model(&Consignment{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Carrier != "" {
		q = q.Where("carrier = ?", filter.Carrier)
	}
	if filter.OrderID != "" {
		q = q.Where("order_id = ?", filter.OrderID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	var out []Consignment
	if err := q.Order("created_at DESC").Limit(page.Limit).Offset(page.Offset).Find(&out).Error; err != nil {
		return nil, 0, translate(err)
	}
	return out, total, nil
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

var _ Repository = (*PostgresRepository)(nil)

// gormLogger routes gorm's query log through otelzap so SQL errors carry the
// request's trace context.
type gormLogger struct {
	logger        *otelzap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

func newGormLogger(logger *otelzap.Logger) gormlogger.Interface {
	return &gormLogger{logger: logger, level: gormlogger.Warn, slowThreshold: 500 * time.Millisecond}
}

func (l *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	c := *l
	c.level = level
	return &c
}

func (l *gormLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		l.logger.Ctx(ctx).Info(fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.logger.Ctx(ctx).Warn(fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		l.logger.Ctx(ctx).Error(fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= gormlogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.logger.Ctx(ctx).Error("Query failed",
			zap.Error(err),
			zap.String("sql", sql),
			zap.Int64("rows", rows),
			zap.Duration("elapsed", elapsed),
		)
	case elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		l.logger.Ctx(ctx).Warn("Slow query",
			zap.String("sql", sql),
			zap.Int64("rows", rows),
			zap.Duration("elapsed", elapsed),
		)
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		l.logger.Ctx(ctx).Debug("Query",
			zap.String("sql", sql),
			zap.Int64("rows", rows),
			zap.Duration("elapsed", elapsed),
		)
	}
}
