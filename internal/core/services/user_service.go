package services

import (
	"context"
	"errors"
	"strings"

	"dimos-fixit/internal/adapters/persistence/models"
	"dimos-fixit/internal/adapters/persistence/repositories"
	"dimos-fixit/internal/core/domain"
	"dimos-fixit/internal/pkg/pagination"
	"dimos-fixit/internal/pkg/password"
	"dimos-fixit/internal/pkg/patch"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// User service errors
var (
	ErrUserNotFound        = domain.NotFound("User not found")
	ErrOldPasswordWrong    = domain.FieldError("currentPassword", "Current password is incorrect")
	ErrCannotDeleteSelf    = domain.Validation("Cannot delete your own account", nil)
	ErrCannotChangeOwnRole = domain.Validation("Cannot change your own role or status", nil)
)

// UserService handles user management business logic
type UserService struct {
	userRepo  repositories.UserRepository
	issueRepo *repositories.IssueRepository
	log       *zap.SugaredLogger
}

// NewUserService creates a new user service
func NewUserService(
	userRepo repositories.UserRepository,
	issueRepo *repositories.IssueRepository,
	log *zap.SugaredLogger,
) *UserService {
	return &UserService{
		userRepo:  userRepo,
		issueRepo: issueRepo,
		log:       log,
	}
}

// ListUsersInput represents list users input
type ListUsersInput struct {
	Page     int
	Limit    int
	Role     string
	IsActive *bool
	Search   string
}

// ListUsersOutput represents list users output
type ListUsersOutput struct {
	Users []*models.User
	Meta  *pagination.Meta
}

// CreateUserInput represents admin user creation
type CreateUserInput struct {
	Email     string  `json:"email"`
	Username  string  `json:"username"`
	Password  string  `json:"password"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Phone     *string `json:"phone"`
	Role      string  `json:"role"`
}

// UpdateUserInput represents an admin partial update
type UpdateUserInput struct {
	Email     patch.Field[string] `json:"email"`
	Username  patch.Field[string] `json:"username"`
	Password  patch.Field[string] `json:"password"`
	FirstName patch.Field[string] `json:"firstName"`
	LastName  patch.Field[string] `json:"lastName"`
	Phone     patch.Field[string] `json:"phone"`
	Role      patch.Field[string] `json:"role"`
	IsActive  patch.Field[bool]   `json:"isActive"`
}

// UpdateProfileInput represents update profile input (for self)
type UpdateProfileInput struct {
	FirstName patch.Field[string] `json:"firstName"`
	LastName  patch.Field[string] `json:"lastName"`
	Phone     patch.Field[string] `json:"phone"`
}

// ChangePasswordInput represents change password input
type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ListUsers lists users with pagination; staff only
func (s *UserService) ListUsers(ctx context.Context, actor domain.Actor, input *ListUsersInput) (*ListUsersOutput, error) {
	if err := domain.Authorize(actor, domain.ResourceUser, domain.ActionList, domain.Ownership{}); err != nil {
		return nil, err
	}

	params := pagination.New(input.Page, input.Limit)
	users, total, err := s.userRepo.List(ctx, repositories.UserFilter{
		Role:     strings.ToUpper(strings.TrimSpace(input.Role)),
		IsActive: input.IsActive,
		Search:   input.Search,
	}, params.Offset, params.Limit)
	if err != nil {
		return nil, domain.Internal(err)
	}

	return &ListUsersOutput{
		Users: users,
		Meta:  pagination.GetMeta(params, total),
	}, nil
}

// GetUser returns a user; citizens may only fetch themselves
func (s *UserService) GetUser(ctx context.Context, actor domain.Actor, id uint) (*models.User, error) {
	own := domain.Ownership{Owner: id == actor.ID}
	if err := domain.Authorize(actor, domain.ResourceUser, domain.ActionRead, own); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, ErrUserNotFound)
	}
	return user, nil
}

// CreateUser creates an account with any role; admin only
func (s *UserService) CreateUser(ctx context.Context, actor domain.Actor, input *CreateUserInput) (*models.User, error) {
	if err := domain.Authorize(actor, domain.ResourceUser, domain.ActionCreate, domain.Ownership{}); err != nil {
		return nil, err
	}

	reg := &RegisterInput{
		Email:     input.Email,
		Username:  input.Username,
		Password:  input.Password,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Phone:     input.Phone,
	}
	reg.normalize()

	role := domain.Role(strings.ToUpper(strings.TrimSpace(input.Role)))
	if role == "" {
		role = domain.RoleUser
	}

	if err := reg.validate(); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, domain.FieldError("role", "invalid role")
	}

	if err := s.ensureUnique(ctx, reg.Email, reg.Username, 0); err != nil {
		return nil, err
	}

	hashedPassword, err := password.Hash(reg.Password)
	if err != nil {
		return nil, domain.Internal(err)
	}

	user := &models.User{
		Email:     reg.Email,
		Username:  reg.Username,
		Password:  hashedPassword,
		FirstName: reg.FirstName,
		LastName:  reg.LastName,
		Phone:     reg.Phone,
		Role:      string(role),
		IsActive:  true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, domain.Internal(err)
	}

	s.log.Infow("user created", "userId", user.ID, "role", user.Role, "by", actor.ID)
	return user, nil
}

// UpdateUser applies an admin partial update.
// Fields the caller may not write are dropped.
func (s *UserService) UpdateUser(ctx context.Context, actor domain.Actor, id uint, input *UpdateUserInput) (*models.User, error) {
	if err := domain.Authorize(actor, domain.ResourceUser, domain.ActionUpdate, domain.Ownership{}); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, ErrUserNotFound)
	}

	allowed := domain.WritableFields(actor.Role, domain.ResourceUser)
	fe := fieldErrors{}

	if id == actor.ID {
		changesRole := input.Role.HasValue() && !strings.EqualFold(strings.TrimSpace(input.Role.Value), user.Role)
		deactivates := input.IsActive.HasValue() && !input.IsActive.Value
		if changesRole || deactivates {
			return nil, ErrCannotChangeOwnRole
		}
	}

	email, username := user.Email, user.Username
	if allowed[domain.FieldEmail] && input.Email.HasValue() {
		email = strings.ToLower(strings.TrimSpace(input.Email.Value))
		fe.email("email", email)
	}
	if allowed[domain.FieldUsername] && input.Username.HasValue() {
		username = strings.TrimSpace(input.Username.Value)
		if n := len([]rune(username)); n < 3 || n > 50 {
			fe.add("username", "username must be 3-50 characters")
		}
	}
	if allowed[domain.FieldFirstName] && input.FirstName.HasValue() {
		user.FirstName = strings.TrimSpace(input.FirstName.Value)
		fe.required("firstName", user.FirstName)
	}
	if allowed[domain.FieldLastName] && input.LastName.HasValue() {
		user.LastName = strings.TrimSpace(input.LastName.Value)
		fe.required("lastName", user.LastName)
	}
	if allowed[domain.FieldPhone] && input.Phone.Set {
		user.Phone = trimmedOrNil(input.Phone)
	}
	if allowed[domain.FieldRole] && input.Role.HasValue() {
		role := domain.Role(strings.ToUpper(strings.TrimSpace(input.Role.Value)))
		if !role.Valid() {
			fe.add("role", "invalid role")
		}
		user.Role = string(role)
	}
	if allowed[domain.FieldIsActive] && input.IsActive.HasValue() {
		user.IsActive = input.IsActive.Value
	}
	if allowed[domain.FieldPassword] && input.Password.HasValue() {
		if !password.ValidatePassword(input.Password.Value) {
			fe.add("password", "password must be at least 8 characters")
		} else {
			hashed, err := password.Hash(input.Password.Value)
			if err != nil {
				return nil, domain.Internal(err)
			}
			user.Password = hashed
		}
	}
	if err := fe.err(); err != nil {
		return nil, err
	}

	if err := s.ensureUnique(ctx, email, username, user.ID); err != nil {
		return nil, err
	}
	user.Email, user.Username = email, username

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, domain.Internal(err)
	}

	s.log.Infow("user updated", "userId", user.ID, "by", actor.ID)
	return user, nil
}

// DeleteUser removes a user, or deactivates them when issues, comments
// or photos reference them. It reports whether the account was only deactivated.
func (s *UserService) DeleteUser(ctx context.Context, actor domain.Actor, id uint) (bool, error) {
	if err := domain.Authorize(actor, domain.ResourceUser, domain.ActionDelete, domain.Ownership{}); err != nil {
		return false, err
	}
	if id == actor.ID {
		return false, ErrCannotDeleteSelf
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return false, lookupErr(err, ErrUserNotFound)
	}

	owned, err := s.issueRepo.CountByUser(ctx, id)
	if err != nil {
		return false, domain.Internal(err)
	}
	authored, err := s.userRepo.CountContributions(ctx, id)
	if err != nil {
		return false, domain.Internal(err)
	}

	// comments and photos keep pointing at the account
	if owned+authored > 0 {
		user.IsActive = false
		if err := s.userRepo.Update(ctx, user); err != nil {
			return false, domain.Internal(err)
		}
		s.log.Infow("user deactivated", "userId", id, "issues", owned, "contributions", authored, "by", actor.ID)
		return true, nil
	}

	if err := s.userRepo.Delete(ctx, id); err != nil {
		return false, domain.Internal(err)
	}
	s.log.Infow("user deleted", "userId", id, "by", actor.ID)
	return false, nil
}

// GetProfile gets own profile
func (s *UserService) GetProfile(ctx context.Context, actor domain.Actor) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, lookupErr(err, ErrUserNotFound)
	}
	return user, nil
}

// UpdateProfile updates own name and phone
func (s *UserService) UpdateProfile(ctx context.Context, actor domain.Actor, input *UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, lookupErr(err, ErrUserNotFound)
	}

	fe := fieldErrors{}
	if domain.CanWrite(actor.Role, domain.ResourceProfile, domain.FieldFirstName) && input.FirstName.HasValue() {
		user.FirstName = strings.TrimSpace(input.FirstName.Value)
		fe.required("firstName", user.FirstName)
		fe.maxLen("firstName", user.FirstName, 100)
	}
	if domain.CanWrite(actor.Role, domain.ResourceProfile, domain.FieldLastName) && input.LastName.HasValue() {
		user.LastName = strings.TrimSpace(input.LastName.Value)
		fe.required("lastName", user.LastName)
		fe.maxLen("lastName", user.LastName, 100)
	}
	if domain.CanWrite(actor.Role, domain.ResourceProfile, domain.FieldPhone) && input.Phone.Set {
		user.Phone = trimmedOrNil(input.Phone)
	}
	if err := fe.err(); err != nil {
		return nil, err
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, domain.Internal(err)
	}
	return user, nil
}

// ChangePassword changes the caller's password
func (s *UserService) ChangePassword(ctx context.Context, actor domain.Actor, input *ChangePasswordInput) error {
	user, err := s.userRepo.GetByID(ctx, actor.ID)
	if err != nil {
		return lookupErr(err, ErrUserNotFound)
	}

	if !password.Verify(input.CurrentPassword, user.Password) {
		return ErrOldPasswordWrong
	}
	if !password.ValidatePassword(input.NewPassword) {
		return domain.FieldError("newPassword", "New password must be at least 8 characters")
	}

	hashedPassword, err := password.Hash(input.NewPassword)
	if err != nil {
		return domain.Internal(err)
	}

	user.Password = hashedPassword
	if err := s.userRepo.Update(ctx, user); err != nil {
		return domain.Internal(err)
	}
	return nil
}

func (s *UserService) ensureUnique(ctx context.Context, email, username string, excludeID uint) error {
	exists, err := s.userRepo.ExistsByEmail(ctx, email, excludeID)
	if err != nil {
		return domain.Internal(err)
	}
	if exists {
		return ErrEmailTaken
	}

	exists, err = s.userRepo.ExistsByUsername(ctx, username, excludeID)
	if err != nil {
		return domain.Internal(err)
	}
	if exists {
		return ErrUsernameTaken
	}
	return nil
}

// activeStaff loads a user that issues may be assigned to
func activeStaff(ctx context.Context, repo repositories.UserRepository, id uint) (*models.User, error) {
	user, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.FieldError("assignedToId", "Assignee not found")
		}
		return nil, domain.Internal(err)
	}
	if !user.IsActive || !domain.Role(user.Role).IsStaff() {
		return nil, domain.FieldError("assignedToId", "Issues can only be assigned to active staff")
	}
	return user, nil
}

func trimmedOrNil(f patch.Field[string]) *string {
	if !f.HasValue() {
		return nil
	}
	v := strings.TrimSpace(f.Value)
	if v == "" {
		return nil
	}
	return &v
}
