package service

import (
	"guildmint/internal/core/domain"
	"guildmint/internal/core/ports"
	"guildmint/pkg/apperror"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// noteClaims is the bank note token payload: three dot-separated base64url
// segments, HS256-signed with the process-wide secret. The token is a
// self-contained bearer credential, verifiable offline and recipient-bound.
// Single use is enforced server-side by the consumed flag, never by the
// token alone.
type noteClaims struct {
	CurrencyID string `json:"cur"`
	Amount     int64  `json:"amt"`
	Recipient  string `json:"rcp"`
	jwt.RegisteredClaims
}

// JWTNoteTokenService implements ports.NoteTokenService using HS256 JWT.
type JWTNoteTokenService struct {
	secret []byte
	issuer string
}

// NewJWTNoteTokenService creates a new note token service.
func NewJWTNoteTokenService(secret string, issuer string) *JWTNoteTokenService {
	return &JWTNoteTokenService{
		secret: []byte(secret),
		issuer: issuer,
	}
}

// Sign produces the bearer token for an issued note.
func (s *JWTNoteTokenService) Sign(note *domain.BankNote) (string, error) {
	claims := noteClaims{
		CurrencyID: note.CurrencyID.String(),
		Amount:     note.Amount,
		Recipient:  note.RecipientExternalID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       note.ID.String(),
			Issuer:   s.issuer,
			IssuedAt: jwt.NewNumericDate(note.IssuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", apperror.InternalError(err)
	}
	return signed, nil
}

// Verify recomputes the signature over header+payload and parses the claims.
// Any mismatch (flipped payload bit, wrong algorithm, truncated segment)
// surfaces as InvalidSignature.
func (s *JWTNoteTokenService) Verify(tokenString string) (*ports.NoteClaims, error) {
	claims := &noteClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperror.ErrInvalidSignature()
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithIssuedAt())
	if err != nil || !token.Valid {
		return nil, apperror.ErrInvalidSignature()
	}

	noteID, err := uuid.Parse(claims.ID)
	if err != nil {
		return nil, apperror.ErrInvalidSignature()
	}
	currencyID, err := uuid.Parse(claims.CurrencyID)
	if err != nil {
		return nil, apperror.ErrInvalidSignature()
	}
	if claims.Amount <= 0 || claims.Recipient == "" {
		return nil, apperror.ErrInvalidSignature()
	}

	return &ports.NoteClaims{
		NoteID:              noteID,
		CurrencyID:          currencyID,
		Amount:              claims.Amount,
		RecipientExternalID: claims.Recipient,
	}, nil
}
