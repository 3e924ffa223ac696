package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DB 是一个全局的数据库连接实例
var DB *gorm.DB

// Models 返回需要自动迁移的全部模型，顺序即建表顺序
func Models() []interface{} {
	return []interface{}{
		&User{},
		&Profile{},
		&Habit{},
		&HabitCheck{},
		&MeditationLog{},
		&Exercise{},
		&WorkoutSession{},
		&WorkoutSet{},
		&Food{},
		&Meal{},
		&MealItem{},
		&DailySummary{},
		&RecomputeJob{},
	}
}

// Init 初始化全局数据库连接并执行自动迁移。
// driver 为空时使用 sqlite；sqlite 下 dsn 为空时回退到默认值 vitalog.db。
func Init(driver, dsn string) error {
	gdb, err := Open(driver, dsn, logger.Default.LogMode(logger.Warn))
	if err != nil {
		return err
	}
	DB = gdb
	return nil
}

// Open 打开数据库连接并执行自动迁移，不修改全局变量，便于测试与 CLI 复用
func Open(driver, dsn string, gormLogger logger.Interface) (*gorm.DB, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	dsn = strings.TrimSpace(dsn)

	var dialector gorm.Dialector
	switch driver {
	case "", DriverSQLite:
		if dsn == "" {
			dsn = "vitalog.db"
		}
		if !strings.HasPrefix(dsn, "file:") {
			if err := ensureParentDir(dsn); err != nil {
				return nil, err
			}
		}
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		if dsn == "" {
			return nil, errors.New("postgres dsn is required")
		}
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, err
	}

	if driver == "" || driver == DriverSQLite {
		// sqlite 只允许单写者，限制连接数让并发重算在连接池处排队
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	// 自动迁移模式，为核心模型创建表
	if err := gdb.AutoMigrate(Models()...); err != nil {
		return nil, err
	}

	return gdb, nil
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
