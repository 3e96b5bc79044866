package ledger

import (
	"fmt"
	"io"
	"log"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/financialpress/fpt-ledger/pkg/db/models"
)

var testDBCounter atomic.Int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:ledger_test_%d?mode=memory&cache=shared", testDBCounter.Add(1))
	silent := gormlogger.New(
		log.New(io.Discard, "", log.LstdFlags),
		gormlogger.Config{LogLevel: gormlogger.Silent},
	)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 silent,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	if err := conn.AutoMigrate(
		&models.Account{},
		&models.Transaction{},
		&models.RewardRule{},
		&models.EngagementEvent{},
		&models.RewardClaim{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	return conn
}

func seedAccount(t *testing.T, conn *gorm.DB, balance string) *models.Account {
	t.Helper()

	amount, err := decimal.NewFromString(balance)
	if err != nil {
		t.Fatalf("parse balance: %v", err)
	}
	account := &models.Account{
		ID:          uuid.New(),
		DisplayName: "test account",
		Balance:     amount,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	if err := conn.Create(account).Error; err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return account
}
