// Package storage defines the persistence interface for generation runs.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/rfqrocket/internal/models"
)

// ErrNotFound is returned when a generation does not exist.
var ErrNotFound = errors.New("generation not found")

// Storage defines generation persistence operations.
type Storage interface {
	// Generation operations
	CreateGeneration(ctx context.Context, gen *models.Generation) error
	GetGeneration(ctx context.Context, id string) (*models.Generation, error)
	GetGenerationByOutput(ctx context.Context, outputName string) (*models.Generation, error)
	ListGenerations(ctx context.Context, offset, limit int) ([]*models.Generation, error)
	DeleteGeneration(ctx context.Context, id string) error

	// Source tracking for the inbox watcher
	MarkSourceProcessed(ctx context.Context, sourceID, generationID string) error
	IsSourceProcessed(ctx context.Context, sourceID string) (bool, error)

	// Stats
	CountGenerations(ctx context.Context) (int64, error)

	Close() error
}
