package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/financialpress/fpt-ledger/pkg/db/models"
	"github.com/financialpress/fpt-ledger/pkg/enums"
	pkgerrors "github.com/financialpress/fpt-ledger/pkg/errors"
	"github.com/financialpress/fpt-ledger/pkg/pagination"
)

// Repository manages persistence for accounts and their transactions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	AdjustBalance(ctx context.Context, accountID uuid.UUID, delta decimal.Decimal, requireFunds bool) (*models.Account, error)
	CreateTransaction(ctx context.Context, txn *models.Transaction) error
	FindAccount(ctx context.Context, accountID uuid.UUID) (*models.Account, error)
	FindTransactionByIdempotencyKey(ctx context.Context, accountID uuid.UUID, key string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, accountID uuid.UUID, kind *enums.TransactionKind, cursor *pagination.Cursor, limit int) ([]models.Transaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// AdjustBalance applies delta to the account balance in a single conditioned
// UPDATE. The WHERE clause is the linearization point: a debit only lands when
// the row still holds enough funds, so the non-negative invariant survives
// concurrent writers without row locks in the service layer.
func (r *repository) AdjustBalance(ctx context.Context, accountID uuid.UUID, delta decimal.Decimal, requireFunds bool) (*models.Account, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ? AND deactivated_at IS NULL", accountID)
	if requireFunds {
		query = query.Where("balance >= ?", delta.Neg())
	}

	result := query.Update("balance", gorm.Expr("balance + ?", delta))
	if result.Error != nil {
		return nil, result.Error
	}

	if result.RowsAffected == 0 {
		account, err := r.FindAccount(ctx, accountID)
		if err != nil {
			return nil, err
		}
		if account.DeactivatedAt != nil {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "account is deactivated")
		}
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientBalance, "balance too low for debit").
			WithDetails(map[string]string{
				"current":   account.Balance.String(),
				"requested": delta.Neg().String(),
			})
	}

	return r.FindAccount(ctx, accountID)
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) FindAccount(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).
		Where("id = ?", accountID).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) FindTransactionByIdempotencyKey(ctx context.Context, accountID uuid.UUID, key string) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND idempotency_key = ?", accountID, key).
		First(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) ListTransactions(ctx context.Context, accountID uuid.UUID, kind *enums.TransactionKind, cursor *pagination.Cursor, limit int) ([]models.Transaction, error) {
	query := r.db.WithContext(ctx).
		Where("account_id = ?", accountID)
	if kind != nil {
		query = query.Where("kind = ?", *kind)
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var txns []models.Transaction
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}
