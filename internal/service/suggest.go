package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/samber/lo"

	"github.com/sakif/pet-namer/internal/apperror"
	"github.com/sakif/pet-namer/internal/generator"
)

const (
	MaxDescriptionLength = 500
	MaxSuggestions       = 10
)

// SuggestionService asks the generator for pet names.
type SuggestionService struct {
	gen    generator.Generator
	logger *slog.Logger
}

func NewSuggestionService(gen generator.Generator, logger *slog.Logger) *SuggestionService {
	return &SuggestionService{gen: gen, logger: logger}
}

// Suggest returns up to MaxSuggestions distinct names for a pet.
//
// gender is optional and lowercased into the prompt ("Male" → "male"). The model is
// asked for {"names": [...]}; anything we can't read as that is an upstream failure.
func (s *SuggestionService) Suggest(ctx context.Context, description, gender string) ([]string, error) {
	description = strings.TrimSpace(description)
	gender = strings.TrimSpace(gender)

	switch {
	case description == "":
		return nil, apperror.ValidationFailed("description", "Description is required")
	case utf8.RuneCountInString(description) > MaxDescriptionLength:
		return nil, apperror.ValidationFailed("description", "Description must be at most 500 characters")
	case utf8.RuneCountInString(gender) > MaxGenderLength:
		return nil, apperror.ValidationFailed("gender", "Gender must be at most 32 characters")
	}

	out, err := s.gen.Complete(ctx, BuildPrompt(description, gender))
	if err != nil {
		return nil, err
	}

	names, err := ParseNames(out)
	if err != nil {
		return nil, apperror.Upstream("generator: reading suggestions", err)
	}

	s.logger.Debug("names suggested", slog.Int("count", len(names)))
	return names, nil
}

// BuildPrompt renders the instruction sent to the model.
func BuildPrompt(description, gender string) string {
	adjective := ""
	if g := strings.ToLower(strings.TrimSpace(gender)); g != "" {
		adjective = g + " "
	}
	return fmt.Sprintf(
		`Suggest 10 unique %spet names for a pet described as: %s. Return the results as a JSON object with the following structure: { "names": ["name1", "name2", ... ] }`,
		adjective, description,
	)
}

// ParseNames reads {"names": [...]} from model output.
//
// Models sometimes wrap JSON in a ```json fence or add a sentence around it, so we
// strip fences and fall back to the outermost {...}. Names are trimmed, blanks and
// case-insensitive duplicates dropped, and the list capped at MaxSuggestions.
func ParseNames(out string) ([]string, error) {
	var payload struct {
		Names []string `json:"names"`
	}

	body := stripFence(out)
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		start, end := strings.Index(body, "{"), strings.LastIndex(body, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("output is not JSON: %w", err)
		}
		if err := json.Unmarshal([]byte(body[start:end+1]), &payload); err != nil {
			return nil, fmt.Errorf("output is not JSON: %w", err)
		}
	}

	names := lo.Map(payload.Names, func(n string, _ int) string { return strings.TrimSpace(n) })
	names = lo.Filter(names, func(n string, _ int) bool { return n != "" })
	names = lo.UniqBy(names, strings.ToLower)

	if len(names) == 0 {
		return nil, errors.New("output contains no names")
	}
	if len(names) > MaxSuggestions {
		names = names[:MaxSuggestions]
	}
	return names, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	// Drop the opening fence line (``` or ```json) and the closing fence.
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
