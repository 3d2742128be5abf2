package usecase

import (
	"context"
	"strings"
	"time"

	"card-assistant-backend/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type cardUsecase struct {
	repo     domain.CardRepository
	profiles domain.ProfileUsecase
	validate *validator.Validate
}

func NewCardUsecase(repo domain.CardRepository, profiles domain.ProfileUsecase, validate *validator.Validate) domain.CardUsecase {
	return &cardUsecase{
		repo:     repo,
		profiles: profiles,
		validate: validate,
	}
}

func (u *cardUsecase) ListCards(ctx context.Context, identity domain.Identity) ([]domain.Card, error) {
	if identity.IsZero() {
		return nil, domain.ErrNotAuthenticated
	}
	return u.repo.ListByUser(ctx, identity.ID)
}

// AddCard saves a card after making sure the owning profile exists.
func (u *cardUsecase) AddCard(ctx context.Context, identity domain.Identity, input domain.CardInput) (*domain.Card, error) {
	if identity.IsZero() {
		return nil, domain.ErrNotAuthenticated
	}
	input.Name = strings.TrimSpace(input.Name)
	input.Issuer = strings.TrimSpace(input.Issuer)
	input.CardType = strings.ToLower(strings.TrimSpace(input.CardType))
	input.Network = strings.ToLower(strings.TrimSpace(input.Network))
	if err := validateStruct(u.validate, input); err != nil {
		return nil, err
	}

	if err := u.profiles.Require(ctx, identity); err != nil {
		return nil, err
	}

	card := &domain.Card{
		ID:          uuid.NewString(),
		UserID:      identity.ID,
		Name:        input.Name,
		CardType:    input.CardType,
		Network:     input.Network,
		Issuer:      input.Issuer,
		Category:    input.Category,
		CreditLimit: input.CreditLimit,
		AnnualFee:   input.AnnualFee,
		Benefits:    input.Benefits,
		IsPrimary:   input.IsPrimary,
		CreatedAt:   time.Now().UTC(),
	}
	if err := u.repo.Insert(ctx, card); err != nil {
		return nil, err
	}
	return card, nil
}
