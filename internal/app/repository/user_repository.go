package repository

import (
	"errors"

	"github.com/townmarket/townmarket-backend/internal/app/model"
	"github.com/townmarket/townmarket-backend/pkg/logger"
	"gorm.io/gorm"
)

type UserFilter struct {
	Role   model.UserRole
	Limit  int
	Offset int
}

type UserRepository interface {
	Create(user *model.User) error
	FindByID(id uint) (*model.User, error)
	FindByEmail(email string) (*model.User, error)
	List(filter UserFilter) ([]model.User, error)
	Update(user *model.User) error
	Delete(id uint) error
	CountByRole() (map[model.UserRole]int64, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(user *model.User) error {
	logger.Debug("Creating user in database", map[string]interface{}{
		"email": user.Email,
	})

	if err := r.db.Create(user).Error; err != nil {
		logger.Error("Failed to create user in database", err, map[string]interface{}{
			"email": user.Email,
		})
		return err
	}

	logger.Debug("User created in database", map[string]interface{}{
		"user_id": user.ID,
		"email":   user.Email,
	})
	return nil
}

func (r *userRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	if err := r.db.First(&user, id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find user by ID in database", err, map[string]interface{}{
				"user_id": id,
			})
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(email string) (*model.User, error) {
	logger.Debug("Finding user by email in database", map[string]interface{}{
		"email": email,
	})

	var user model.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find user by email in database", err, map[string]interface{}{
				"email": email,
			})
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(filter UserFilter) ([]model.User, error) {
	query := r.db.Model(&model.User{})
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var users []model.User
	if err := query.Order("id ASC").Find(&users).Error; err != nil {
		logger.Error("Failed to list users", err, map[string]interface{}{
			"role": filter.Role,
		})
		return nil, err
	}
	return users, nil
}

func (r *userRepository) Update(user *model.User) error {
	logger.Debug("Updating user in database", map[string]interface{}{
		"user_id": user.ID,
	})

	if err := r.db.Save(user).Error; err != nil {
		logger.Error("Failed to update user in database", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return err
	}
	return nil
}

func (r *userRepository) Delete(id uint) error {
	result := r.db.Delete(&model.User{}, id)
	if result.Error != nil {
		logger.Error("Failed to delete user from database", result.Error, map[string]interface{}{
			"user_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	logger.Info("User deleted from database", map[string]interface{}{
		"user_id": id,
	})
	return nil
}

func (r *userRepository) CountByRole() (map[model.UserRole]int64, error) {
	var rows []struct {
		Role  model.UserRole
		Count int64
	}
	if err := r.db.Model(&model.User{}).Select("role, COUNT(*) AS count").Group("role").Scan(&rows).Error; err != nil {
		logger.Error("Failed to count users by role", err)
		return nil, err
	}

	counts := map[model.UserRole]int64{
		model.RoleAdmin:     0,
		model.RolePublisher: 0,
		model.RoleViewer:    0,
	}
	for _, row := range rows {
		counts[row.Role] += row.Count
	}
	return counts, nil
}
