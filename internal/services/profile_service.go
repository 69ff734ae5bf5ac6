package services

import (
	"context"
	"fmt"
	"strings"

	"tienda/internal/models"
	"tienda/internal/repositories"
	"tienda/internal/validation"
	"tienda/pkg/logger"

	"github.com/go-playground/validator/v10"
)

// ProfileUpdate is the editable part of a user profile.
type ProfileUpdate struct {
	FullName string `json:"full_name" validate:"omitempty,max=150"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
}

// ProfileService serves the user's own profile, saved addresses and the admin user list.
type ProfileService struct {
	users     repositories.UserRepository
	addresses repositories.AddressRepository
	validate  *validator.Validate
	log       *logger.Logger
}

func NewProfileService(users repositories.UserRepository, addresses repositories.AddressRepository, log *logger.Logger) *ProfileService {
	if log == nil {
		log = logger.Nop()
	}
	return &ProfileService{users: users, addresses: addresses, validate: validation.New(), log: log}
}

func (s *ProfileService) Me(ctx context.Context, sess Session) (*models.User, error) {
	if err := sess.requireUser(); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	user.Password = ""
	return user, nil
}

func (s *ProfileService) UpdateMe(ctx context.Context, sess Session, upd ProfileUpdate) (*models.User, error) {
	if err := sess.requireUser(); err != nil {
		return nil, err
	}
	if err := s.check(upd); err != nil {
		return nil, err
	}
	phone := ""
	if upd.Phone != "" {
		phone = validation.NormalizePhone(upd.Phone)
	}
	if err := s.users.UpdateProfile(ctx, sess.UserID, strings.TrimSpace(upd.FullName), phone); err != nil {
		return nil, err
	}
	return s.Me(ctx, sess)
}

func (s *ProfileService) ListAddresses(ctx context.Context, sess Session) ([]models.Address, error) {
	if err := sess.requireUser(); err != nil {
		return nil, err
	}
	return s.addresses.ListByUser(ctx, sess.UserID)
}

func (s *ProfileService) AddAddress(ctx context.Context, sess Session, in AddressInput) (*models.Address, error) {
	if err := sess.requireUser(); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	addr := in.toModel(sess.UserID)
	if err := s.addresses.Create(ctx, &addr); err != nil {
		return nil, err
	}
	return &addr, nil
}

func (s *ProfileService) DeleteAddress(ctx context.Context, sess Session, id string) error {
	if err := sess.requireUser(); err != nil {
		return err
	}
	return s.addresses.Delete(ctx, sess.UserID, id)
}

// ListUsers is the back-office user list.
func (s *ProfileService) ListUsers(ctx context.Context, sess Session, search string) ([]models.User, error) {
	if err := sess.requireAdmin(); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx, strings.TrimSpace(search))
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].Password = ""
	}
	return users, nil
}

// ChangeRole promotes or demotes a user. Admins cannot demote themselves.
func (s *ProfileService) ChangeRole(ctx context.Context, sess Session, userID, role string) error {
	if err := sess.requireAdmin(); err != nil {
		return err
	}
	if role != models.RoleAdmin && role != models.RoleCustomer {
		return invalidField("role", fmt.Sprintf("unknown role %q", role))
	}
	if userID == sess.UserID && role != models.RoleAdmin {
		return invalid("admins cannot remove their own admin role")
	}
	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		return err
	}
	s.log.Info(s.log.WithFields(ctx, map[string]any{"user_id": userID, "role": role, "by": sess.UserID}), "user role changed")
	return nil
}

func (s *ProfileService) check(v any) error {
	if err := s.validate.Struct(v); err != nil {
		if fields := validation.FieldErrors(err); fields != nil {
			return &ValidationError{Message: "invalid input", Fields: fields}
		}
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
