package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jaekwang-park/project-board/internal/cognito"
	"github.com/jaekwang-park/project-board/internal/model"
	"github.com/jaekwang-park/project-board/internal/repository"
)

// AuthService fronts the Cognito login collaborator and records users
// locally on first login.
type AuthService struct {
	cognitoClient cognito.Client
	userRepo      repository.UserRepository
}

func NewAuthService(cognitoClient cognito.Client, userRepo repository.UserRepository) *AuthService {
	return &AuthService{
		cognitoClient: cognitoClient,
		userRepo:      userRepo,
	}
}

const devSubPrefix = "dev|"

type Credentials struct {
	Email    string
	Password string
}

type SignUpOutput struct {
	UserSub      string `json:"user_sub"`
	Confirmed    bool   `json:"confirmed"`
	CodeDelivery string `json:"code_delivery"`
}

type Session struct {
	User         model.User `json:"user"`
	IDToken      string     `json:"id_token"`
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	ExpiresIn    int32      `json:"expires_in"`
	TokenType    string     `json:"token_type"`
}

func requireFields(fields ...[2]string) error {
	for _, f := range fields {
		if strings.TrimSpace(f[1]) == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidInput, f[0])
		}
	}
	return nil
}

func (s *AuthService) SignUp(ctx context.Context, in Credentials) (SignUpOutput, error) {
	if err := requireFields([2]string{"email", in.Email}, [2]string{"password", in.Password}); err != nil {
		return SignUpOutput{}, err
	}

	idp, err := s.idp()
	if err != nil {
		return SignUpOutput{}, err
	}
	out, err := idp.SignUp(ctx, cognito.SignUpInput{Email: in.Email, Password: in.Password})
	if err != nil {
		return SignUpOutput{}, err
	}
	return SignUpOutput{
		UserSub:      out.UserSub,
		Confirmed:    out.Confirmed,
		CodeDelivery: out.CodeDelivery,
	}, nil
}

func (s *AuthService) ConfirmSignUp(ctx context.Context, email, code string) error {
	if err := requireFields([2]string{"email", email}, [2]string{"code", code}); err != nil {
		return err
	}
	idp, err := s.idp()
	if err != nil {
		return err
	}
	return idp.ConfirmSignUp(ctx, cognito.ConfirmSignUpInput{Email: email, Code: code})
}

// Login authenticates against Cognito and returns the session together
// with the local user record, creating it on first login.
func (s *AuthService) Login(ctx context.Context, in Credentials) (Session, error) {
	if err := requireFields([2]string{"email", in.Email}, [2]string{"password", in.Password}); err != nil {
		return Session{}, err
	}

	idp, err := s.idp()
	if err != nil {
		return Session{}, err
	}
	out, err := idp.Login(ctx, cognito.LoginInput{Email: in.Email, Password: in.Password})
	if err != nil {
		return Session{}, err
	}

	// The token was just issued by Cognito over TLS; the signature is
	// verified by the auth middleware on every later request.
	sub, err := extractSub(out.IDToken)
	if err != nil {
		return Session{}, fmt.Errorf("failed to extract sub from id token: %w", err)
	}

	user, err := s.userRepo.GetOrCreate(ctx, sub, in.Email)
	if err != nil {
		return Session{}, fmt.Errorf("failed to get or create user: %w", err)
	}

	return Session{
		User:         user,
		IDToken:      out.IDToken,
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
		ExpiresIn:    out.ExpiresIn,
		TokenType:    out.TokenType,
	}, nil
}

// DevLogin signs in without Cognito for local development. The user is
// keyed by a synthetic sub derived from the email.
func (s *AuthService) DevLogin(ctx context.Context, email string) (model.User, error) {
	if err := requireFields([2]string{"email", email}); err != nil {
		return model.User{}, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.userRepo.GetOrCreate(ctx, devSubPrefix+email, email)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to get or create user: %w", err)
	}
	return user, nil
}

func (s *AuthService) Refresh(ctx context.Context, email, refreshToken string) (Session, error) {
	if err := requireFields([2]string{"email", email}, [2]string{"refresh_token", refreshToken}); err != nil {
		return Session{}, err
	}

	idp, err := s.idp()
	if err != nil {
		return Session{}, err
	}
	out, err := idp.RefreshTokens(ctx, cognito.RefreshInput{Email: email, RefreshToken: refreshToken})
	if err != nil {
		return Session{}, err
	}
	return Session{
		IDToken:     out.IDToken,
		AccessToken: out.AccessToken,
		ExpiresIn:   out.ExpiresIn,
		TokenType:   out.TokenType,
	}, nil
}

func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	if err := requireFields([2]string{"access_token", accessToken}); err != nil {
		return err
	}
	idp, err := s.idp()
	if err != nil {
		return err
	}
	return idp.GlobalSignOut(ctx, accessToken)
}

func (s *AuthService) idp() (cognito.Client, error) {
	if s.cognitoClient == nil {
		return nil, fmt.Errorf("%w: cognito is not configured", ErrUnavailable)
	}
	return s.cognitoClient, nil
}

// extractSub reads the "sub" claim from a JWT payload without verifying it.
func extractSub(idToken string) (string, error) {
	parts := strings.Split(idToken, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("invalid JWT format")
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("failed to decode JWT payload: %w", err)
	}

	var claims struct {
		Sub string `json:"sub"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return "", fmt.Errorf("failed to parse JWT claims: %w", err)
	}
	if claims.Sub == "" {
		return "", fmt.Errorf("sub claim not found in JWT")
	}
	return claims.Sub, nil
}
