package db

import (
	"errors"
	"fmt"

	"github.com/townmarket/townmarket-backend/config"
	"github.com/townmarket/townmarket-backend/internal/app/model"
	"github.com/townmarket/townmarket-backend/pkg/logger"
	"github.com/townmarket/townmarket-backend/pkg/util"
	"gorm.io/gorm"
)

var entityKinds = []model.EntityKind{model.KindPlace, model.KindProduct}

// Migrate creates or updates every table. Places and products share the
// model.Entity shape, so each kind is migrated against its own table name.
func Migrate(database *gorm.DB) error {
	logger.Info("Running database migrations...")

	if err := database.AutoMigrate(&model.User{}); err != nil {
		logger.Error("Failed to migrate users", err)
		return err
	}

	for _, kind := range entityKinds {
		if err := database.Table(kind.Table()).AutoMigrate(&model.Entity{}); err != nil {
			logger.Error("Failed to migrate entity table", err, map[string]interface{}{
				"table": kind.Table(),
			})
			return err
		}
		if err := database.Table(kind.ImageTable()).AutoMigrate(&model.Image{}); err != nil {
			logger.Error("Failed to migrate image table", err, map[string]interface{}{
				"table": kind.ImageTable(),
			})
			return err
		}
		if err := addOwnerForeignKey(database, kind); err != nil {
			logger.Error("Failed to add image owner foreign key", err, map[string]interface{}{
				"table": kind.ImageTable(),
			})
			return err
		}
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"tables_count": 1 + 2*len(entityKinds),
	})
	return nil
}

// addOwnerForeignKey links image rows to their owner on PostgreSQL. gorm
// cannot derive it because the image struct is shared between kinds.
func addOwnerForeignKey(database *gorm.DB, kind model.EntityKind) error {
	if database.Dialector.Name() != "postgres" {
		return nil
	}

	stmt := fmt.Sprintf(`DO $$
BEGIN
	ALTER TABLE %[1]s ADD CONSTRAINT fk_%[1]s_owner FOREIGN KEY (owner_id) REFERENCES %[2]s(id);
EXCEPTION
	WHEN duplicate_object THEN NULL;
END $$;`, kind.ImageTable(), kind.Table())

	return database.Exec(stmt).Error
}

// SeedAdmin creates the initial admin account when no user exists yet.
func SeedAdmin(database *gorm.DB, cfg config.AdminSeedConfig) error {
	if cfg.Email == "" || cfg.Password == "" {
		logger.Debug("Admin seed credentials not configured, skipping")
		return nil
	}

	var count int64
	if err := database.Model(&model.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		logger.Info("Users already exist, skipping admin seed", map[string]interface{}{
			"existing_count": count,
		})
		return nil
	}

	hash, err := util.HashPassword(cfg.Password)
	if err != nil {
		if errors.Is(err, util.ErrPasswordTooShort) {
			return fmt.Errorf("ADMIN_PASSWORD: %w", err)
		}
		return err
	}

	admin := &model.User{
		Name:         cfg.Name,
		Email:        cfg.Email,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
	}
	if err := database.Create(admin).Error; err != nil {
		logger.Error("Failed to seed admin user", err, map[string]interface{}{
			"email": cfg.Email,
		})
		return err
	}

	logger.Info("Admin user seeded", map[string]interface{}{
		"user_id": admin.ID,
		"email":   admin.Email,
	})
	return nil
}
