// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Handlers only know HTTP. Services only know business rules. Neither knows SQL.
//
// DEPENDENCY INJECTION:
// NameService takes a repository.NameRepository (interface), NOT a *postgres.DB or
// *sqlite.DB. main.go picks the implementation; tests pass a hand-written fake.
package service

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/pet-namer/internal/apperror"
	"github.com/sakif/pet-namer/internal/model"
	"github.com/sakif/pet-namer/internal/repository"
)

// Validation limits, counted in characters (runes), not bytes.
const (
	MaxNameLength   = 100
	MaxGenderLength = 32
)

// MsgNameAndGenderRequired is the message clients see when either field is blank.
const MsgNameAndGenderRequired = "Name and gender are required"

// NameService handles the saved-name list of a single user.
type NameService struct {
	repo   repository.NameRepository
	logger *slog.Logger
}

func NewNameService(repo repository.NameRepository, logger *slog.Logger) *NameService {
	return &NameService{
		repo:   repo,
		logger: logger,
	}
}

// List returns up to repository.DefaultListLimit names owned by userID.
//
// userID always comes from the verified token, never from the request body or query
// string, so a caller can only ever see their own rows.
func (s *NameService) List(ctx context.Context, userID string) ([]model.SavedName, error) {
	names, err := s.repo.ListByUser(ctx, userID, repository.DefaultListLimit)
	if err != nil {
		return nil, err
	}
	return names, nil
}

// Save validates and stores a name for userID.
//
// VALIDATION RULES (checked before anything touches the store):
//   - name and gender are trimmed; blank after trimming means missing
//   - a missing field → "Name and gender are required" (Field = the first missing one)
//   - name longer than MaxNameLength or gender longer than MaxGenderLength → field error
//
// Duplicates are allowed: saving "Rex" twice gives two rows.
func (s *NameService) Save(ctx context.Context, userID, name, gender string) (*model.SavedName, error) {
	name = strings.TrimSpace(name)
	gender = strings.TrimSpace(gender)

	switch {
	case name == "":
		return nil, apperror.ValidationFailed("name", MsgNameAndGenderRequired)
	case gender == "":
		return nil, apperror.ValidationFailed("gender", MsgNameAndGenderRequired)
	case utf8.RuneCountInString(name) > MaxNameLength:
		return nil, apperror.ValidationFailed("name", "Name must be at most 100 characters")
	case utf8.RuneCountInString(gender) > MaxGenderLength:
		return nil, apperror.ValidationFailed("gender", "Gender must be at most 32 characters")
	}

	saved, err := s.repo.Insert(ctx, userID, name, gender)
	if err != nil {
		return nil, err
	}

	s.logger.Info("name saved",
		slog.Int64("id", saved.ID),
		slog.String("user_id", userID),
	)

	return saved, nil
}
