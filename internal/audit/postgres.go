package audit

import (
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/vesperex/vesper/internal/core"
)

// orderRow and tradeRow are the gorm-mapped tables, named and typed after
// the schema _examples/original_source/src/OrderLogger.cpp creates with
// CREATE TABLE IF NOT EXISTS orders/trades. Numeric fields are stored as
// text (matching spec's "abstract" schema note and the original's own
// std::to_string-into-text-parameter approach) rather than as a native
// numeric column, so no precision is lost translating decimal.Decimal
// through a driver-specific numeric type.
type orderRow struct {
	OrderID        string `gorm:"column:order_id;primaryKey"`
	TraderID       string `gorm:"column:trader_id"`
	Symbol         string `gorm:"column:symbol"`
	Side           string `gorm:"column:side"`
	Type           string `gorm:"column:type"`
	Price          string `gorm:"column:price"`
	Quantity       string `gorm:"column:quantity"`
	FilledQuantity string `gorm:"column:filled_quantity"`
	Status         string `gorm:"column:status"`
	TimestampNanos int64  `gorm:"column:timestamp"`
}

func (orderRow) TableName() string { return "order_records" }

type tradeRow struct {
	TradeID        string `gorm:"column:trade_id;primaryKey"`
	BuyOrderID     string `gorm:"column:buy_order_id"`
	SellOrderID    string `gorm:"column:sell_order_id"`
	Symbol         string `gorm:"column:symbol"`
	BuyerID        string `gorm:"column:buyer_id"`
	SellerID       string `gorm:"column:seller_id"`
	Price          string `gorm:"column:price"`
	Quantity       string `gorm:"column:quantity"`
	TimestampNanos int64  `gorm:"column:timestamp"`
}

func (tradeRow) TableName() string { return "trade_records" }

// Postgres is a gorm-backed audit sink used whenever VESPER_AUDIT_DSN is
// set. Every call logs and swallows its own error: per spec §7, an audit
// failure must never roll back a trade or block the coordinator.
type Postgres struct {
	db  *gorm.DB
	log zerolog.Logger
}

// NewPostgres opens dsn, auto-migrates the two audit tables, and returns a
// ready Postgres sink. The caller should treat a non-nil error as
// non-fatal (spec §6/§7: "audit init failure is warned but non-fatal") and
// fall back to Memory.
func NewPostgres(dsn string, log zerolog.Logger) (*Postgres, error) {
	gormLogger := logger.New(&zerologGormWriter{log: log}, logger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&orderRow{}, &tradeRow{}); err != nil {
		return nil, err
	}
	return &Postgres{db: db, log: log.With().Str("component", "audit.postgres").Logger()}, nil
}

// RecordOrder upserts order, updating filled_quantity and status on
// conflict (spec §6), matching OrderLogger::logOrder's
// "ON CONFLICT (order_id) DO UPDATE SET filled_quantity = ..., status = ...".
func (p *Postgres) RecordOrder(order *core.Order) {
	row := toOrderRow(orderRecord(order))
	err := p.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"filled_quantity", "status"}),
	}).Create(&row).Error
	if err != nil {
		p.log.Error().Err(err).Str("order_id", order.OrderID).Msg("audit: failed to record order")
	}
}

// RecordTrade inserts trade. Trades are never updated once emitted.
func (p *Postgres) RecordTrade(trade core.Trade) {
	row := toTradeRow(tradeRecord(trade))
	if err := p.db.Create(&row).Error; err != nil {
		p.log.Error().Err(err).Str("trade_id", trade.TradeID).Msg("audit: failed to record trade")
	}
}

// Close releases the underlying connection pool.
func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toOrderRow(rec OrderRecord) orderRow {
	return orderRow{
		OrderID:        rec.OrderID,
		TraderID:       rec.TraderID,
		Symbol:         rec.Symbol,
		Side:           rec.Side,
		Type:           rec.Type,
		Price:          rec.Price,
		Quantity:       rec.Quantity,
		FilledQuantity: rec.FilledQuantity,
		Status:         rec.Status,
		TimestampNanos: rec.TimestampNanos,
	}
}

func toTradeRow(rec TradeRecord) tradeRow {
	return tradeRow{
		TradeID:        rec.TradeID,
		BuyOrderID:     rec.BuyOrderID,
		SellOrderID:    rec.SellOrderID,
		Symbol:         rec.Symbol,
		BuyerID:        rec.BuyerID,
		SellerID:       rec.SellerID,
		Price:          rec.Price,
		Quantity:       rec.Quantity,
		TimestampNanos: rec.TimestampNanos,
	}
}

// zerologGormWriter adapts zerolog to gorm's logger.Writer interface,
// matching the teacher/pack's pattern of routing a third-party library's
// internal logging through the process's structured logger rather than
// letting it print to stdout directly (abdoElHodaky-tradSys/internal/db
// does the same for zap).
type zerologGormWriter struct {
	log zerolog.Logger
}

func (w *zerologGormWriter) Printf(format string, args ...interface{}) {
	w.log.Debug().Msgf(format, args...)
}

var _ Sink = (*Postgres)(nil)
