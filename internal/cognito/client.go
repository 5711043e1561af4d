package cognito

import "context"

// Client is the subset of Cognito user-pool operations the web login
// flow needs.
type Client interface {
	SignUp(ctx context.Context, input SignUpInput) (SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, input ConfirmSignUpInput) error
	Login(ctx context.Context, input LoginInput) (AuthOutput, error)
	RefreshTokens(ctx context.Context, input RefreshInput) (AuthOutput, error)
	GlobalSignOut(ctx context.Context, accessToken string) error
}

type SignUpInput struct {
	Email    string
	Password string
}

type SignUpOutput struct {
	UserSub      string
	Confirmed    bool
	CodeDelivery string // e.g. "EMAIL"
}

type ConfirmSignUpInput struct {
	Email string
	Code  string
}

type LoginInput struct {
	Email    string
	Password string
}

type RefreshInput struct {
	Email        string
	RefreshToken string
}

// AuthOutput holds the tokens issued by a successful authentication.
// RefreshToken is empty on refresh responses.
type AuthOutput struct {
	IDToken      string
	AccessToken  string
	RefreshToken string
	ExpiresIn    int32
	TokenType    string
}
