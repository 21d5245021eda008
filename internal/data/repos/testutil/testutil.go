package testutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/ferag-backend/internal/data/db"
	types "github.com/yungbote/ferag-backend/internal/domain"
	"github.com/yungbote/ferag-backend/internal/pkg/dbctx"
	"github.com/yungbote/ferag-backend/internal/platform/logger"
)

var (
	logOnce sync.Once
	logg    *logger.Logger
	logErr  error

	dbSeq atomic.Int64
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

// DB returns a fresh migrated in-memory sqlite database private to tb.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	dsn := fmt.Sprintf("file:ferag_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		tb.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrateAll(gdb); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return gdb
}

func Ctx() dbctx.Context { return dbctx.Context{Ctx: context.Background()} }

func SeedUser(tb testing.TB, gdb *gorm.DB, email string) *types.User {
	tb.Helper()
	u := &types.User{Email: email, PasswordHash: "x"}
	if err := gdb.Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedRag(tb testing.TB, gdb *gorm.DB, ownerID uint, name string) *types.RagInstance {
	tb.Helper()
	r := &types.RagInstance{OwnerID: ownerID, Name: name}
	if err := gdb.Create(r).Error; err != nil {
		tb.Fatalf("seed rag: %v", err)
	}
	r.FusekiDataset = fmt.Sprintf("ferag-%05d", r.ID)
	if err := gdb.Save(r).Error; err != nil {
		tb.Fatalf("seed rag dataset: %v", err)
	}
	return r
}
