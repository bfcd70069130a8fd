package database

import (
	"carcatalog/internal/model"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		logrus.WithError(err).Warn("failed to auto-migrate models")
	}

	return db, nil
}

// Migrate runs AutoMigrate for every core model. Split out so tests can
// run it against an in-memory database.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Role{},
		&model.Permission{},
		&model.Version{},
		&model.Brand{},
		&model.VehicleLine{},
		&model.CarModel{},
		&model.Trim{},
		&model.Option{},
		&model.DiscountPolicy{},
		&model.CardBenefitDetail{},
		&model.BrandPromoDetail{},
		&model.InventoryDiscountDetail{},
		&model.PrePurchaseDetail{},
		&model.ImportJob{},
		&model.AuditLog{},
	)
}
