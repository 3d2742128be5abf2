package supabase

import (
	"context"

	"card-assistant-backend/internal/domain"
	"card-assistant-backend/pkg/auth"
)

// claimsParser is satisfied by *auth.Verifier.
type claimsParser interface {
	Parse(ctx context.Context, token string) (*auth.Claims, error)
}

type tokenVerifier struct {
	parser claimsParser
}

// NewTokenVerifier maps verified Supabase JWT claims onto an Identity.
func NewTokenVerifier(parser claimsParser) domain.TokenVerifier {
	return &tokenVerifier{parser: parser}
}

func (v *tokenVerifier) VerifyAccessToken(ctx context.Context, token string) (*domain.Identity, error) {
	claims, err := v.parser.Parse(ctx, token)
	if err != nil {
		return nil, domain.NewAuthError(domain.AuthInvalidCredentials, "access token rejected", err)
	}
	return &domain.Identity{
		ID:    claims.Subject,
		Email: claims.Email,
		Metadata: domain.ProviderMetadata{
			FullName:  claims.MetadataString("full_name"),
			Name:      claims.MetadataString("name"),
			AvatarURL: claims.MetadataString("avatar_url"),
			Picture:   claims.MetadataString("picture"),
		},
	}, nil
}
