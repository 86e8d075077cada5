// Package db
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/amirphl/alertdesk/internal/journal"
)

type Event = journal.Event

// Storage is the interface for all persistent storage.
type Storage interface {
	GetDB() *sql.DB
	journal.Journaler
	DeleteEvents(ctx context.Context, eventType string, before time.Time) error
}

// PruneEvents deletes events of the given types older than before. On a SQL
// backed storage all deletions share one transaction.
func PruneEvents(ctx context.Context, s Storage, before time.Time, eventTypes ...string) error {
	sqlDB := s.GetDB()
	if sqlDB == nil {
		for _, t := range eventTypes {
			if err := s.DeleteEvents(ctx, t, before); err != nil {
				return err
			}
		}
		return nil
	}

	tx, err := sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	txCtx := WithTransaction(ctx, tx)
	for _, t := range eventTypes {
		if err := s.DeleteEvents(txCtx, t, before); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				return fmt.Errorf("transaction rollback failed: %w (original error: %v)", rbErr, err)
			}
			return fmt.Errorf("failed to prune %s events: %w", t, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("transaction commit failed: %w", err)
	}
	return nil
}
