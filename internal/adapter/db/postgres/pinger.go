package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Pinger checks connectivity of the connection pool behind a *gorm.DB.
type Pinger struct {
	db *gorm.DB
}

// NewPinger creates a Pinger for db.
func NewPinger(db *gorm.DB) *Pinger {
	return &Pinger{db: db}
}

// PingContext pings the underlying *sql.DB.
func (p *Pinger) PingContext(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
