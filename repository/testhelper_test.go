package repository

import (
	"path/filepath"
	"testing"

	"TuneLib/db"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupTestDB 在临时目录里创建 SQLite 数据库并建表
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tunelib.db")
	gormDB, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err, "open sqlite")

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	// SQLite 单写者，串行化连接避免 database is locked
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrateModels(gormDB))
	t.Cleanup(func() { db.CloseGormDB(gormDB) })
	return gormDB
}
