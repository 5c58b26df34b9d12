package ofspectrum

import "context"

// Token is an API credential/scope record owned by the authenticated
// user, distinct from the bearer key used to authenticate.
type Token struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Scope     string `json:"scope,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// TokensService accesses the user's API token records.
type TokensService struct {
	client *Client
}

// List returns all token records for the authenticated user.
func (s *TokensService) List(ctx context.Context) ([]Token, error) {
	var tokens []Token
	if err := s.client.getJSON(ctx, "/tokens/", &tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}
