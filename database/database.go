package database

import (
	"timeclock/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Init(dsn string, log *zap.Logger) error {
	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return err
	}

	if err := Migrate(DB); err != nil {
		return err
	}

	// Seed default admin if not exists
	if err := seedDefaultAdmin(log); err != nil {
		return err
	}

	return nil
}

// Migrate applies the schema. Split out so tests can run it against their
// own database handle.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Employee{},
		&models.ShiftAssignment{},
		&models.AttendanceRecord{},
		&models.ScanLog{},
		&models.UnresolvedScan{},
	)
}

func seedDefaultAdmin(log *zap.Logger) error {
	var count int64
	DB.Model(&models.User{}).Where("username = ?", "admin").Count(&count)
	if count > 0 {
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := models.User{
		Username:           "admin",
		FullName:           "Administrator",
		PasswordHash:       string(hashedPassword),
		Role:               models.RoleAdmin,
		MustChangePassword: true,
	}

	result := DB.Create(&admin)
	if result.Error != nil {
		return result.Error
	}

	log.Info("default admin user created", zap.String("username", "admin"))
	return nil
}

func GetDB() *gorm.DB {
	return DB
}
