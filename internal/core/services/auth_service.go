package services

import (
	"context"
	"errors"
	"strings"

	"dimos-fixit/internal/adapters/persistence/models"
	"dimos-fixit/internal/adapters/persistence/repositories"
	"dimos-fixit/internal/config"
	"dimos-fixit/internal/core/domain"
	"dimos-fixit/internal/pkg/jwt"
	"dimos-fixit/internal/pkg/password"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Auth errors
var (
	ErrInvalidCredentials = domain.Unauthenticated("Invalid email or password")
	ErrUserInactive       = domain.Unauthenticated("User account is inactive")
	ErrInvalidToken       = domain.Unauthenticated("Invalid token")
	ErrTokenExpired       = domain.Unauthenticated("Token expired")
	ErrTokenRevoked       = domain.Unauthenticated("Token revoked")
	ErrEmailTaken         = domain.Conflict("Email already registered")
	ErrUsernameTaken      = domain.Conflict("Username already taken")
)

// AuthService handles authentication business logic
type AuthService struct {
	userRepo         repositories.UserRepository
	refreshTokenRepo repositories.RefreshTokenRepository
	jwtCfg           config.JWTConfig
	log              *zap.SugaredLogger
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repositories.UserRepository,
	refreshTokenRepo repositories.RefreshTokenRepository,
	jwtCfg config.JWTConfig,
	log *zap.SugaredLogger,
) *AuthService {
	return &AuthService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		jwtCfg:           jwtCfg,
		log:              log,
	}
}

// RegisterInput represents registration input
type RegisterInput struct {
	Email     string  `json:"email"`
	Username  string  `json:"username"`
	Password  string  `json:"password"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Phone     *string `json:"phone"`
}

// LoginInput represents login input
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenPair represents access and refresh tokens
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthResponse represents authentication response
type AuthResponse struct {
	User         *models.User `json:"user"`
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
}

func (in *RegisterInput) normalize() {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Username = strings.TrimSpace(in.Username)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if in.Phone != nil {
		p := strings.TrimSpace(*in.Phone)
		if p == "" {
			in.Phone = nil
		} else {
			in.Phone = &p
		}
	}
}

func (in *RegisterInput) validate() error {
	fe := fieldErrors{}
	fe.email("email", in.Email)
	fe.required("username", in.Username)
	if n := len([]rune(in.Username)); in.Username != "" && (n < 3 || n > 50) {
		fe.add("username", "username must be 3-50 characters")
	}
	if !password.ValidatePassword(in.Password) {
		fe.add("password", "password must be at least 8 characters")
	}
	fe.required("firstName", in.FirstName)
	fe.required("lastName", in.LastName)
	fe.maxLen("firstName", in.FirstName, 100)
	fe.maxLen("lastName", in.LastName, 100)
	return fe.err()
}

// Register registers a new citizen account
func (s *AuthService) Register(ctx context.Context, input *RegisterInput) (*AuthResponse, error) {
	input.normalize()
	if err := input.validate(); err != nil {
		return nil, err
	}

	exists, err := s.userRepo.ExistsByEmail(ctx, input.Email, 0)
	if err != nil {
		return nil, domain.Internal(err)
	}
	if exists {
		return nil, ErrEmailTaken
	}

	exists, err = s.userRepo.ExistsByUsername(ctx, input.Username, 0)
	if err != nil {
		return nil, domain.Internal(err)
	}
	if exists {
		return nil, ErrUsernameTaken
	}

	hashedPassword, err := password.Hash(input.Password)
	if err != nil {
		return nil, domain.Internal(err)
	}

	user := &models.User{
		Email:     input.Email,
		Username:  input.Username,
		Password:  hashedPassword,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Phone:     input.Phone,
		Role:      string(domain.RoleUser),
		IsActive:  true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, domain.Internal(err)
	}

	resp, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.log.Infow("user registered", "userId", user.ID, "username", user.Username)
	return resp, nil
}

// Login authenticates a user by email and password
func (s *AuthService) Login(ctx context.Context, input *LoginInput) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, domain.Validation("Email and password are required", map[string]string{
			"email":    "email is required",
			"password": "password is required",
		})
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, domain.Internal(err)
	}

	if !password.Verify(input.Password, user.Password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	resp, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.log.Infow("user logged in", "userId", user.ID)
	return resp, nil
}

// RefreshToken rotates the refresh token and issues a new access token
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := jwt.ValidateRefreshToken(refreshToken, s.jwtCfg.RefreshSecret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	storedToken, err := s.refreshTokenRepo.GetByTokenHash(ctx, password.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, domain.Internal(err)
	}
	if storedToken.IsRevoked() {
		// replay of a rotated token: the whole session family is suspect
		if err := s.refreshTokenRepo.RevokeAllByUserID(ctx, storedToken.UserID); err != nil {
			return nil, domain.Internal(err)
		}
		s.log.Warnw("refresh token reuse detected", "userId", storedToken.UserID)
		return nil, ErrTokenRevoked
	}
	if storedToken.IsExpired() {
		return nil, ErrTokenExpired
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	tokens, err := s.generateTokens(user)
	if err != nil {
		return nil, domain.Internal(err)
	}
	if err := s.refreshTokenRepo.Rotate(ctx, storedToken.ID, s.refreshRecord(user.ID, tokens.RefreshToken)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenRevoked
		}
		return nil, domain.Internal(err)
	}
	return &AuthResponse{
		User:         user,
		Token:        tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}

// Logout revokes the refresh token
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.refreshTokenRepo.RevokeByTokenHash(ctx, password.HashToken(refreshToken)); err != nil {
		return domain.Internal(err)
	}
	return nil
}

// LogoutAll revokes all refresh tokens for a user
func (s *AuthService) LogoutAll(ctx context.Context, userID uint) error {
	if err := s.refreshTokenRepo.RevokeAllByUserID(ctx, userID); err != nil {
		return domain.Internal(err)
	}
	s.log.Infow("all sessions revoked", "userId", userID)
	return nil
}

// Authenticate resolves a bearer token to an active user
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := jwt.ValidateAccessToken(accessToken, s.jwtCfg.Secret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.Unauthenticated("User not found")
		}
		return nil, domain.Internal(err)
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	return user, nil
}

// issueSession generates and stores a token pair for user
func (s *AuthService) issueSession(ctx context.Context, user *models.User) (*AuthResponse, error) {
	tokens, err := s.generateTokens(user)
	if err != nil {
		return nil, domain.Internal(err)
	}
	if err := s.storeRefreshToken(ctx, user.ID, tokens.RefreshToken); err != nil {
		return nil, domain.Internal(err)
	}
	return &AuthResponse{
		User:         user,
		Token:        tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}

// generateTokens generates access and refresh tokens
func (s *AuthService) generateTokens(user *models.User) (*TokenPair, error) {
	accessToken, err := jwt.GenerateAccessToken(
		user.ID,
		user.Email,
		user.Username,
		user.Role,
		s.jwtCfg.Secret,
		s.jwtCfg.AccessTokenMins,
	)
	if err != nil {
		return nil, err
	}

	refreshToken, err := jwt.GenerateRefreshToken(
		user.ID,
		uuid.New().String(),
		s.jwtCfg.RefreshSecret,
		s.jwtCfg.RefreshTokenDays,
	)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// storeRefreshToken stores a refresh token hash in the database
func (s *AuthService) storeRefreshToken(ctx context.Context, userID uint, refreshToken string) error {
	return s.refreshTokenRepo.Create(ctx, s.refreshRecord(userID, refreshToken))
}

func (s *AuthService) refreshRecord(userID uint, refreshToken string) *models.RefreshToken {
	return &models.RefreshToken{
		UserID:    userID,
		TokenHash: password.HashToken(refreshToken),
		ExpiresAt: jwt.GetExpiryTime(s.jwtCfg.RefreshTokenDays),
	}
}
