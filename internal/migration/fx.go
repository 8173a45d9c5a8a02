package migration

import (
	"github.com/channelpass/channelpass/internal/config"
	paymentdomain "github.com/channelpass/channelpass/internal/payment/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType != "postgres" {
			// sqlite is for local runs only; AutoMigrate keeps it usable
			// without the postgres migration driver.
			return conn.AutoMigrate(&paymentdomain.Payment{})
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
