package cognito

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"
)

// AWSClient implements Client against a Cognito user pool app client.
type AWSClient struct {
	api          *cip.Client
	clientID     string
	clientSecret string
}

func NewAWSClient(ctx context.Context, region, clientID, clientSecret string) (*AWSClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &AWSClient{
		api:          cip.NewFromConfig(cfg),
		clientID:     clientID,
		clientSecret: clientSecret,
	}, nil
}

func (c *AWSClient) secretHash(username string) *string {
	if c.clientSecret == "" {
		return nil
	}
	return aws.String(ComputeSecretHash(username, c.clientID, c.clientSecret))
}

func (c *AWSClient) SignUp(ctx context.Context, input SignUpInput) (SignUpOutput, error) {
	out, err := c.api.SignUp(ctx, &cip.SignUpInput{
		ClientId:   aws.String(c.clientID),
		SecretHash: c.secretHash(input.Email),
		Username:   aws.String(input.Email),
		Password:   aws.String(input.Password),
		UserAttributes: []types.AttributeType{
			{Name: aws.String("email"), Value: aws.String(input.Email)},
		},
	})
	if err != nil {
		return SignUpOutput{}, mapAWSError(err)
	}

	result := SignUpOutput{
		UserSub:   aws.ToString(out.UserSub),
		Confirmed: out.UserConfirmed,
	}
	if out.CodeDeliveryDetails != nil {
		result.CodeDelivery = string(out.CodeDeliveryDetails.DeliveryMedium)
	}
	return result, nil
}

func (c *AWSClient) ConfirmSignUp(ctx context.Context, input ConfirmSignUpInput) error {
	_, err := c.api.ConfirmSignUp(ctx, &cip.ConfirmSignUpInput{
		ClientId:         aws.String(c.clientID),
		SecretHash:       c.secretHash(input.Email),
		Username:         aws.String(input.Email),
		ConfirmationCode: aws.String(input.Code),
	})
	return mapAWSError(err)
}

func (c *AWSClient) Login(ctx context.Context, input LoginInput) (AuthOutput, error) {
	return c.initiateAuth(ctx, types.AuthFlowTypeUserPasswordAuth, input.Email, map[string]string{
		"USERNAME": input.Email,
		"PASSWORD": input.Password,
	})
}

func (c *AWSClient) RefreshTokens(ctx context.Context, input RefreshInput) (AuthOutput, error) {
	return c.initiateAuth(ctx, types.AuthFlowTypeRefreshTokenAuth, input.Email, map[string]string{
		"REFRESH_TOKEN": input.RefreshToken,
	})
}

func (c *AWSClient) initiateAuth(ctx context.Context, flow types.AuthFlowType, username string, params map[string]string) (AuthOutput, error) {
	if h := c.secretHash(username); h != nil {
		params["SECRET_HASH"] = *h
	}

	out, err := c.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		ClientId:       aws.String(c.clientID),
		AuthFlow:       flow,
		AuthParameters: params,
	})
	if err != nil {
		return AuthOutput{}, mapAWSError(err)
	}

	r := out.AuthenticationResult
	if r == nil {
		// Challenges (MFA, NEW_PASSWORD_REQUIRED) are not supported by the web flow.
		return AuthOutput{}, fmt.Errorf("unsupported auth challenge %q: %w", out.ChallengeName, ErrNotAuthorized)
	}
	return AuthOutput{
		IDToken:      aws.ToString(r.IdToken),
		AccessToken:  aws.ToString(r.AccessToken),
		RefreshToken: aws.ToString(r.RefreshToken),
		ExpiresIn:    r.ExpiresIn,
		TokenType:    aws.ToString(r.TokenType),
	}, nil
}

func (c *AWSClient) GlobalSignOut(ctx context.Context, accessToken string) error {
	_, err := c.api.GlobalSignOut(ctx, &cip.GlobalSignOutInput{
		AccessToken: aws.String(accessToken),
	})
	return mapAWSError(err)
}

// awsErrorCodes maps Cognito API error codes onto package sentinels.
var awsErrorCodes = map[string]error{
	"UsernameExistsException":        ErrUserAlreadyExists,
	"UserNotFoundException":          ErrUserNotFound,
	"UserNotConfirmedException":      ErrUserNotConfirmed,
	"InvalidPasswordException":       ErrInvalidPassword,
	"CodeMismatchException":          ErrInvalidCode,
	"ExpiredCodeException":           ErrCodeExpired,
	"TooManyRequestsException":       ErrTooManyRequests,
	"NotAuthorizedException":         ErrNotAuthorized,
	"LimitExceededException":         ErrTooManyRequests,
	"PasswordResetRequiredException": ErrNotAuthorized,
	"InvalidParameterException":      ErrInvalidParameter,
}

// mapAWSError converts SDK errors to sentinels. nil maps to nil.
func mapAWSError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("cognito: %w", err)
	}
	if sentinel, ok := awsErrorCodes[apiErr.ErrorCode()]; ok {
		return fmt.Errorf("%s: %w", apiErr.ErrorMessage(), sentinel)
	}
	return fmt.Errorf("cognito %s: %w", apiErr.ErrorCode(), err)
}

var _ Client = (*AWSClient)(nil)
