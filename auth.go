package pilotsite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/eringen/pilotsite/apperr"
	"github.com/eringen/pilotsite/docstore"
)

// ErrBadCredentials hides whether the email or the password was wrong.
var ErrBadCredentials = errors.New("pilotsite: invalid email or password")

const minPasswordLen = 8

// dummyHash keeps the timing of unknown-email sign-ins close to real ones.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("pilotsite-dummy"), bcrypt.DefaultCost)

// Authenticate checks email and password against the accounts collection.
func Authenticate(ctx context.Context, store docstore.Store, email, password string) (docstore.Account, error) {
	acc, err := store.FindAccount(ctx, email)
	if apperr.Is(err, apperr.NotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return docstore.Account{}, ErrBadCredentials
	}
	if err != nil {
		return docstore.Account{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return docstore.Account{}, ErrBadCredentials
	}
	return acc, nil
}

// CreateAccount stores a new credential. uid links the account to its org
// role; a fresh id is assigned when empty.
func CreateAccount(ctx context.Context, store docstore.Store, email, password, uid string) (docstore.Account, error) {
	email = docstore.NormalizeEmail(email)
	if email == "" {
		return docstore.Account{}, apperr.Invalid("email", "email is required")
	}
	if len(password) < minPasswordLen {
		return docstore.Account{}, apperr.Invalid("password", fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return docstore.Account{}, fmt.Errorf("hash password: %w", err)
	}
	if uid == "" {
		uid = docstore.NewID()
	}
	acc := docstore.Account{
		UID:          uid,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := store.SaveAccount(ctx, acc); err != nil {
		return docstore.Account{}, err
	}
	return acc, nil
}

// IDClaims are the claims read from an identity-provider token.
type IDClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenVerifier checks ID tokens issued by a hosted identity provider.
type TokenVerifier struct {
	keyfunc  jwt.Keyfunc
	methods  []string
	issuer   string
	audience string
}

// NewTokenVerifier fetches signing keys from jwksURL and keeps them
// refreshed until ctx ends.
func NewTokenVerifier(ctx context.Context, jwksURL, issuer, audience string) (*TokenVerifier, error) {
	k, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("load jwks: %w", err)
	}
	return NewTokenVerifierFunc(k.Keyfunc, issuer, audience, "RS256", "ES256"), nil
}

// NewTokenVerifierFunc builds a verifier over an existing key function.
func NewTokenVerifierFunc(kf jwt.Keyfunc, issuer, audience string, methods ...string) *TokenVerifier {
	return &TokenVerifier{keyfunc: kf, methods: methods, issuer: issuer, audience: audience}
}

// Verify parses raw and returns its claims. The subject becomes the uid.
func (v *TokenVerifier) Verify(raw string) (IDClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(v.methods),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	var claims IDClaims
	if _, err := jwt.ParseWithClaims(raw, &claims, v.keyfunc, opts...); err != nil {
		return IDClaims{}, apperr.E(apperr.Permission, "verify id token", err)
	}
	if claims.Subject == "" {
		return IDClaims{}, apperr.E(apperr.Permission, "verify id token", errors.New("token has no subject"))
	}
	return claims, nil
}
