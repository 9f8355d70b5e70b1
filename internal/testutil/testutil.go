package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/threadboard/internal/auth"
	"github.com/d60-Lab/threadboard/pkg/database"
)

var dbSeq atomic.Int64

// NewTestDB 为每个测试打开独立的内存 sqlite 并迁移表结构
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

var (
	Alice = auth.Identity{UserID: "user_alice", Username: "alice", ImageURL: "https://img.example.com/alice.png"}
	Bob   = auth.Identity{UserID: "user_bob", Username: "bob", ImageURL: "https://img.example.com/bob.png"}
	Carol = auth.Identity{UserID: "user_carol", Username: "carol", ImageURL: "https://img.example.com/carol.png"}
)
