package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/gradeledger/core"
	"github.com/trezcool/gradeledger/core/ledger"
)

const contextTokenKey = "ledgerToken"

// Claims represents the authorization claims transmitted via a JWT.
// The subject is the key of the ledger the token gives access to.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64 `json:"oriat,omitempty"`
}

// authenticator issues and checks ledger session tokens.
type authenticator struct {
	config     middleware.JWTConfig
	issuer     string
	expiration time.Duration
}

func newAuthenticator(conf *core.Config) *authenticator {
	return &authenticator{
		config: middleware.JWTConfig{
			SigningKey:    []byte(conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    contextTokenKey,
			Claims:        new(Claims),
		},
		issuer:     conf.AppName,
		expiration: conf.Server.JWTExpirationDelta,
	}
}

func (a *authenticator) middleware() echo.MiddlewareFunc {
	return middleware.JWTWithConfig(a.config)
}

// claims returns the Claims of a token giving access to the ledger identified by key.
func (a *authenticator) claims(key ledger.ID, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    a.issuer,
			Subject:   string(key),
			ExpiresAt: now.Add(a.expiration).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func (a *authenticator) GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(a.config.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(a.config.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// GenerateToken returns a session token for the ledger identified by key, signed with conf.SecretKey.
func GenerateToken(conf *core.Config, key ledger.ID) (string, error) {
	a := newAuthenticator(conf)
	return a.GenerateToken(a.claims(key))
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextKey(ctx echo.Context) (ledger.ID, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errUnauthorized
	}
	return ledger.ID(claims.Subject), nil
}
