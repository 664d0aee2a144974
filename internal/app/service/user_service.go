package service

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/townmarket/townmarket-backend/internal/app/model"
	"github.com/townmarket/townmarket-backend/internal/app/repository"
	"github.com/townmarket/townmarket-backend/pkg/logger"
	"github.com/townmarket/townmarket-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrCannotDeleteSelf   = errors.New("you cannot delete your own account")
)

type CreateUserInput struct {
	Name     string         `json:"name" form:"name" validate:"required,max=255"`
	Email    string         `json:"email" form:"email" validate:"required,email,max=255"`
	Password string         `json:"password" form:"password" validate:"required,min=8"`
	Role     model.UserRole `json:"role" form:"role" validate:"required,oneof=admin publisher viewer"`
}

// UpdateUserInput changes only the fields that are set.
type UpdateUserInput struct {
	Name     *string         `json:"name" form:"name" validate:"omitempty,max=255"`
	Password *string         `json:"password" form:"password" validate:"omitempty,min=8"`
	Role     *model.UserRole `json:"role" form:"role" validate:"omitempty,oneof=admin publisher viewer"`
}

type UserService interface {
	List(filter repository.UserFilter) ([]model.User, error)
	Get(id uint) (*model.User, error)
	Create(input CreateUserInput) (*model.User, error)
	Update(id uint, input UpdateUserInput) (*model.User, error)
	Delete(actorID, id uint) error
}

type userService struct {
	userRepo repository.UserRepository
	validate *validator.Validate
}

func NewUserService(userRepo repository.UserRepository, validate *validator.Validate) UserService {
	if validate == nil {
		validate = NewFieldValidator()
	}
	return &userService{userRepo: userRepo, validate: validate}
}

func (s *userService) List(filter repository.UserFilter) ([]model.User, error) {
	users, err := s.userRepo.List(filter)
	if err != nil {
		return nil, persistenceError(err)
	}
	return users, nil
}

func (s *userService) Get(id uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, persistenceError(err)
	}
	return user, nil
}

func (s *userService) Create(input CreateUserInput) (*model.User, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := validateStruct(s.validate, input); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.FindByEmail(input.Email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, persistenceError(err)
	}
	if existing != nil {
		logger.Warn("User creation failed: email already exists", map[string]interface{}{
			"email": input.Email,
		})
		return nil, ErrEmailAlreadyExists
	}

	hash, err := util.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:         TitleCase(input.Name),
		Email:        input.Email,
		PasswordHash: hash,
		Role:         input.Role,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, persistenceError(err)
	}

	logger.Info("User created", map[string]interface{}{
		"user_id": user.ID,
		"role":    user.Role,
	})
	return user, nil
}

func (s *userService) Update(id uint, input UpdateUserInput) (*model.User, error) {
	if err := validateStruct(s.validate, input); err != nil {
		return nil, err
	}

	user, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, newValidationError("name", "is required")
		}
		user.Name = TitleCase(name)
	}
	if input.Role != nil {
		user.Role = *input.Role
	}
	if input.Password != nil {
		hash, err := util.HashPassword(*input.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, persistenceError(err)
	}

	logger.Info("User updated", map[string]interface{}{
		"user_id": user.ID,
		"role":    user.Role,
	})
	return user, nil
}

func (s *userService) Delete(actorID, id uint) error {
	if actorID == id {
		return ErrCannotDeleteSelf
	}

	if err := s.userRepo.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return persistenceError(err)
	}
	return nil
}
