package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/philsca/registrar/internal/cache"
)

// DefaultTicketTTL defines the fallback validity period for realtime tickets.
const DefaultTicketTTL = time.Minute

const ticketAudience = "realtime"

var (
	// ErrTicketInvalid is returned for malformed, expired or forged tickets.
	ErrTicketInvalid = errors.New("ticket: invalid")
	// ErrTicketReused is returned when a single-use ticket is presented twice.
	ErrTicketReused = errors.New("ticket: already redeemed")
)

// TicketConfig bundles the configuration required to build a TicketService.
type TicketConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
	Clock  func() time.Time
	// Store records redeemed ticket ids. Tickets are reusable until expiry when nil.
	Store cache.Store
}

// TicketClaims represents the claims embedded in realtime tickets.
type TicketClaims struct {
	AdminID string `json:"uid"`
	jwt.RegisteredClaims
}

// TicketService issues short-lived JWTs that authorize a websocket upgrade. Browsers
// cannot attach the session cookie to every websocket client, so the dashboard trades
// its session for a ticket first.
type TicketService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
	store  cache.Store
}

// NewTicketService constructs a TicketService instance when provided with the required configuration.
func NewTicketService(cfg TicketConfig) (*TicketService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("ticket: secret must be provided")
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTicketTTL
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &TicketService{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    ttl,
		now:    now,
		store:  cfg.Store,
	}, nil
}

// Issue signs a ticket for adminID and returns it with its expiry.
func (s *TicketService) Issue(adminID string) (string, time.Time, error) {
	if adminID == "" {
		return "", time.Time{}, errors.New("ticket: admin id is required")
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)

	claims := &TicketClaims{
		AdminID: adminID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   adminID,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{ticketAudience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("ticket: sign: %w", err)
	}
	return signed, expiresAt, nil
}

// Redeem validates a ticket and, when a store is configured, marks it used.
func (s *TicketService) Redeem(ctx context.Context, ticket string) (*TicketClaims, error) {
	if ticket == "" {
		return nil, ErrTicketInvalid
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithAudience(ticketAudience),
		jwt.WithExpirationRequired(),
	)

	var claims TicketClaims
	if _, err := parser.ParseWithClaims(ticket, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTicketInvalid, err)
	}

	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, fmt.Errorf("%w: issuer mismatch", ErrTicketInvalid)
	}
	if claims.AdminID == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: missing claims", ErrTicketInvalid)
	}

	if s.store != nil {
		remaining := claims.ExpiresAt.Time.Sub(s.now())
		claimed, err := s.store.SetIfAbsent(ctx, "ticket:"+claims.ID, []byte(claims.AdminID), remaining)
		if err != nil {
			return nil, fmt.Errorf("ticket: record: %w", err)
		}
		if !claimed {
			return nil, ErrTicketReused
		}
	}

	return &claims, nil
}
