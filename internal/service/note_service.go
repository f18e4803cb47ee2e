package service

import (
	"context"
	"fmt"
	"time"

	"guildmint/internal/core/domain"
	"guildmint/internal/core/ports"
	"guildmint/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// NoteServiceImpl implements ports.NoteService. A note's lifecycle is
// Issued -> Consumed, terminal: the issuer is debited at issuance (value
// leaves circulation immediately) and exactly one redemption credits the
// bound recipient.
type NoteServiceImpl struct {
	accountRepo  ports.AccountRepository
	currencyRepo ports.CurrencyRepository
	walletRepo   ports.WalletRepository
	noteRepo     ports.NoteRepository
	tokens       ports.NoteTokenService
	lock         ports.NoteLock // nil disables the fast-path guard
	lockTTL      time.Duration
	transactor   ports.DBTransactor
	audit        ports.AuditRecorder
	log          zerolog.Logger
}

// NewNoteService creates a new NoteServiceImpl.
func NewNoteService(
	accountRepo ports.AccountRepository,
	currencyRepo ports.CurrencyRepository,
	walletRepo ports.WalletRepository,
	noteRepo ports.NoteRepository,
	tokens ports.NoteTokenService,
	lock ports.NoteLock,
	lockTTL time.Duration,
	transactor ports.DBTransactor,
	audit ports.AuditRecorder,
	log zerolog.Logger,
) *NoteServiceImpl {
	return &NoteServiceImpl{
		accountRepo:  accountRepo,
		currencyRepo: currencyRepo,
		walletRepo:   walletRepo,
		noteRepo:     noteRepo,
		tokens:       tokens,
		lock:         lock,
		lockTTL:      lockTTL,
		transactor:   transactor,
		audit:        audit,
		log:          log,
	}
}

// Issue debits the issuer and persists the note in one transaction, then
// returns the signed bearer token.
func (s *NoteServiceImpl) Issue(ctx context.Context, req ports.IssueNoteRequest) (*ports.IssuedNote, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	currency, err := s.currencyRepo.GetByID(ctx, req.CurrencyID)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("load currency: %w", err))
	}
	if currency == nil {
		return nil, apperror.ErrCurrencyNotFound()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	issuer, err := s.accountRepo.ResolveTx(ctx, dbTx, req.IssuerExternalID)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("resolve issuer: %w", err))
	}

	wallet, err := s.walletRepo.GetForUpdate(ctx, dbTx, issuer.ID, req.CurrencyID)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("lock issuer wallet: %w", err))
	}
	if wallet == nil || wallet.Balance < req.Amount {
		return nil, apperror.ErrInsufficientBalance()
	}

	note := &domain.BankNote{
		ID:                  uuid.New(),
		CurrencyID:          req.CurrencyID,
		Amount:              req.Amount,
		RecipientExternalID: req.RecipientExternalID,
		IssuerAccountID:     issuer.ID,
		IssuedAt:            time.Now().UTC(),
	}

	// Sign before committing: a note that cannot produce its token must not
	// debit anyone.
	token, err := s.tokens.Sign(note)
	if err != nil {
		return nil, err
	}

	if err := s.walletRepo.SetBalance(ctx, dbTx, wallet.ID, wallet.Balance-req.Amount); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("debit issuer: %w", err))
	}
	if err := s.noteRepo.Create(ctx, dbTx, note); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("create note: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("commit tx: %w", err))
	}

	s.audit.Enqueue(domain.AuditEvent{
		Kind:           domain.AuditKindNoteIssue,
		ActorAccountID: issuer.ID,
		CurrencyID:     req.CurrencyID,
		Amount:         req.Amount,
	})

	s.log.Info().
		Str("note_id", note.ID.String()).
		Str("issuer_id", issuer.ID.String()).
		Int64("amount", req.Amount).
		Msg("bank note issued")

	return &ports.IssuedNote{Note: note, Token: token}, nil
}

// Redeem verifies the token, enforces the recipient binding, and atomically
// consumes the note while crediting the redeemer. At most one concurrent
// redemption of a note can succeed: the redis claim short-circuits races
// early, and the conditional consume inside the transaction settles them.
func (s *NoteServiceImpl) Redeem(ctx context.Context, redeemerExternalID, token string) (*ports.RedeemedNote, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	if claims.RecipientExternalID != redeemerExternalID {
		return nil, apperror.ErrRecipientMismatch()
	}

	if s.lock != nil {
		won, err := s.lock.Acquire(ctx, claims.NoteID.String(), s.lockTTL)
		if err != nil {
			// Degrade to the database guard.
			s.log.Warn().Err(err).Str("note_id", claims.NoteID.String()).
				Msg("note lock unavailable, relying on conditional consume")
		} else if !won {
			return nil, apperror.ErrAlreadyConsumed()
		}
	}

	redeemed, err := s.redeemTx(ctx, redeemerExternalID, claims)
	if err != nil {
		// A failed attempt must not hold the claim for the full TTL.
		if s.lock != nil {
			if relErr := s.lock.Release(ctx, claims.NoteID.String()); relErr != nil {
				s.log.Warn().Err(relErr).Str("note_id", claims.NoteID.String()).
					Msg("failed to release note lock")
			}
		}
		return nil, err
	}
	return redeemed, nil
}

func (s *NoteServiceImpl) redeemTx(ctx context.Context, redeemerExternalID string, claims *ports.NoteClaims) (*ports.RedeemedNote, error) {
	note, err := s.noteRepo.GetByID(ctx, claims.NoteID)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("load note: %w", err))
	}
	if note == nil {
		return nil, apperror.ErrNotFound("bank note")
	}
	if note.Consumed {
		return nil, apperror.ErrAlreadyConsumed()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Compare-and-set: of two redemptions that both saw consumed == false,
	// only one flips the row. Flip and credit commit together.
	flipped, err := s.noteRepo.Consume(ctx, dbTx, note.ID, time.Now().UTC())
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("consume note: %w", err))
	}
	if !flipped {
		return nil, apperror.ErrAlreadyConsumed()
	}

	redeemer, err := s.accountRepo.ResolveTx(ctx, dbTx, redeemerExternalID)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("resolve redeemer: %w", err))
	}
	if err := s.walletRepo.UpsertAdd(ctx, dbTx, redeemer.ID, note.CurrencyID, note.Amount); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("credit redeemer: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("commit tx: %w", err))
	}

	s.audit.Enqueue(domain.AuditEvent{
		Kind:                 domain.AuditKindNoteRedeem,
		ActorAccountID:       redeemer.ID,
		CounterpartAccountID: &note.IssuerAccountID,
		CurrencyID:           note.CurrencyID,
		Amount:               note.Amount,
	})

	s.log.Info().
		Str("note_id", note.ID.String()).
		Str("redeemer_id", redeemer.ID.String()).
		Int64("amount", note.Amount).
		Msg("bank note redeemed")

	return &ports.RedeemedNote{
		NoteID:     note.ID,
		CurrencyID: note.CurrencyID,
		Amount:     note.Amount,
	}, nil
}
