package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"
)

var ErrVerificationFailed = errors.New("verification failed")

const (
	otpDigits  = 6
	defaultTTL = 5 * time.Minute
)

// Service implements the identity/OTP exchange the mobile clients
// consume: Initiate hands out an opaque id for an email, Complete
// verifies the one-time code, creates the durable user record when
// needed, and signs a token. Both calls are idempotent on retry from the
// client's perspective.
type Service struct {
	users     UserStore
	otps      OTPCache
	jwtSecret []byte
	otpTTL    time.Duration
}

func NewService(db *sql.DB, cache *redis.Client, jwtSecret string, otpTTLSec int) *Service {
	ttl := defaultTTL
	if otpTTLSec > 0 {
		ttl = time.Duration(otpTTLSec) * time.Second
	}
	return &Service{
		users:     NewStore(db),
		otps:      NewRedisOTPCache(cache),
		jwtSecret: []byte(jwtSecret),
		otpTTL:    ttl,
	}
}

// NewServiceWith wires explicit collaborators; tests use it with fakes.
func NewServiceWith(users UserStore, otps OTPCache, jwtSecret []byte, ttl time.Duration) *Service {
	return &Service{users: users, otps: otps, jwtSecret: jwtSecret, otpTTL: ttl}
}

// Initiate mints an opaque id and a one-time code for the email. Only
// the digest of the code is stored. The code itself is returned to the
// caller for delivery (mail, or the dev log); it never rides the HTTP
// response.
func (s *Service) Initiate(ctx context.Context, email string) (id, otp string, err error) {
	if email == "" {
		return "", "", errors.New("email is required")
	}

	id = ulid.Make().String()
	otp, err = generateOTP()
	if err != nil {
		return "", "", err
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(otp), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}

	if err := s.otps.Put(ctx, id, otpEntry{Email: email, Digest: string(digest)}, s.otpTTL); err != nil {
		return "", "", err
	}
	return id, otp, nil
}

// Complete verifies the code for the id. On first success for a new
// email it creates the durable user row; on retry it finds the row
// already there and simply signs a fresh token.
func (s *Service) Complete(ctx context.Context, id, otp string) (string, error) {
	entry, err := s.otps.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOTPNotFound) {
			return "", ErrVerificationFailed
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(entry.Digest), []byte(otp)); err != nil {
		return "", ErrVerificationFailed
	}

	user, err := s.users.FindOrCreate(ctx, entry.Email, ulid.Make().String())
	if err != nil {
		return "", err
	}

	// Best effort: an expired entry would vanish on its own anyway.
	_ = s.otps.Delete(ctx, id)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"exp":   time.Now().Add(24 * time.Hour).Unix(),
	})
	return token.SignedString(s.jwtSecret)
}

func (s *Service) JWTSecret() []byte { return s.jwtSecret }

func generateOTP() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < otpDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n), nil
}
