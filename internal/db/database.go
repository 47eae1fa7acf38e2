package db

import (
	"log"
	"time"

	"vault-backend/internal/config"
	"vault-backend/internal/metrics"
	"vault-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// InitDB connects to postgres and migrates the schema. The DSN is required
// here; callers choosing the in-memory store skip this entirely.
func InitDB() {
	var err error

	if config.AppConfig == nil || config.AppConfig.Database.DSN == "" {
		log.Fatalf("Database DSN is required")
	}

	dsn := config.AppConfig.Database.DSN

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
		PrepareStmt:                              true,
		// TranslateError turns driver unique-violation and not-found errors
		// into gorm sentinels the repository layer matches on.
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}

	log.Println("Database connected")

	if err := DB.AutoMigrate(
		&models.AssetState{},
		&models.WalletAccount{},
		&models.AccountAsset{},
		&models.RewardBalance{},
		&models.WithdrawRequest{},
		&models.DepositRecord{},
		&models.WithdrawalRecord{},
		&models.WithdrawRequestRecord{},
		&models.RequestStatusRecord{},
		&models.FeeShareRecord{},
		&models.StrategyFlowRecord{},
		&models.RewardClaimRecord{},
	); err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}

	log.Println("Database schema migrated")

	go monitorPool()
}

// monitorPool exports connection pool stats to prometheus.
func monitorPool() {
	for {
		sqlDB, err := DB.DB()
		if err == nil {
			stats := sqlDB.Stats()
			metrics.DBConnectionPoolSize.Set(float64(stats.MaxOpenConnections))
			metrics.DBConnectionActive.Set(float64(stats.InUse))
			metrics.DBConnectionIdle.Set(float64(stats.Idle))
			if err := sqlDB.Ping(); err != nil {
				metrics.DBConnectionStatus.Set(0)
			} else {
				metrics.DBConnectionStatus.Set(1)
			}
		}
		time.Sleep(30 * time.Second)
	}
}
