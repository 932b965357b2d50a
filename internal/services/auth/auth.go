// Package services содержит регистрацию, вход и управление профилями пользователей.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/buscaaqui/internal/lib/jwt"
	"github.com/magabrotheeeer/buscaaqui/internal/lib/password"
	"github.com/magabrotheeeer/buscaaqui/internal/lib/sl"
	"github.com/magabrotheeeer/buscaaqui/internal/models"
)

// profileAdsLimit сколько объявлений показывать в публичном профиле.
const profileAdsLimit = 50

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	CreateUser(ctx context.Context, u models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUser(ctx context.Context, uid string) (*models.User, error)
	UpdateProfile(ctx context.Context, uid string, upd models.ProfileUpdate) (*models.User, error)
	ListUsers(ctx context.Context, page models.Page) ([]models.User, error)
	DeleteUser(ctx context.Context, uid string) error
	// ListAds нужен для объявлений в публичном профиле.
	ListAds(ctx context.Context, f models.AdFilter) ([]models.Ad, int, error)
}

// AuthService отвечает за регистрацию, вход, токены сессии и профили.
type AuthService struct {
	users    UserRepository
	jwtMaker jwt.Maker
	log      *slog.Logger
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(users UserRepository, jwtMaker jwt.Maker, log *slog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		jwtMaker: jwtMaker,
		log:      log,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register создает пользователя с ролью user. Повторный email даёт ErrAlreadyExists.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	const op = "services.auth.Register"

	accountType := req.AccountType
	if accountType == "" {
		accountType = models.AccountPersonal
	}
	businessName := strings.TrimSpace(req.BusinessName)
	if accountType == models.AccountBusiness && businessName == "" {
		return nil, fmt.Errorf("%s: %w: business_name is required for business accounts", op, models.ErrInvalidInput)
	}

	hashed, err := password.GetHash(req.Password)
	if errors.Is(err, password.ErrTooShort) {
		return nil, fmt.Errorf("%s: %w: %w", op, models.ErrInvalidInput, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user := models.User{
		Email:        normalizeEmail(req.Email),
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hashed,
		Phone:        req.Phone,
		Role:         models.RoleUser,
		AccountType:  accountType,
		Document:     req.Document,
		City:         req.City,
	}
	if accountType == models.AccountBusiness {
		user.BusinessName = businessName
		user.BusinessDescription = req.BusinessDescription
	}

	created, err := s.users.CreateUser(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user registered", slog.String("op", op), sl.UID(created.UID))
	return created, nil
}

// Login проверяет пароль и выдаёт токен сессии.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.Session, error) {
	const op = "services.auth.Login"

	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(user.PasswordHash, req.Password); err != nil {
		return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
	}

	token, expiresAt, err := s.jwtMaker.GenerateToken(user.UID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &models.Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// ValidateToken проверяет токен сессии. Просроченный или поддельный токен даёт ErrUnauthorized.
func (s *AuthService) ValidateToken(_ context.Context, token string) (*models.Viewer, error) {
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrUnauthorized, err)
	}
	return &models.Viewer{UID: claims.UserUID, Email: claims.Email, Role: claims.Role}, nil
}

// Me возвращает пользователя по uid.
func (s *AuthService) Me(ctx context.Context, uid string) (*models.User, error) {
	const op = "services.auth.Me"
	user, err := s.users.GetUser(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// UpdateProfile меняет переданные поля профиля.
func (s *AuthService) UpdateProfile(ctx context.Context, uid string, upd models.ProfileUpdate) (*models.User, error) {
	const op = "services.auth.UpdateProfile"

	current, err := s.users.GetUser(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	accountType := current.AccountType
	if upd.AccountType != nil {
		accountType = *upd.AccountType
	}
	businessName := current.BusinessName
	if upd.BusinessName != nil {
		businessName = strings.TrimSpace(*upd.BusinessName)
		upd.BusinessName = &businessName
	}
	if accountType == models.AccountBusiness && businessName == "" {
		return nil, fmt.Errorf("%s: %w: business_name is required for business accounts", op, models.ErrInvalidInput)
	}

	user, err := s.users.UpdateProfile(ctx, uid, upd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// PublicProfile возвращает публичный профиль продавца и его одобренные объявления.
func (s *AuthService) PublicProfile(ctx context.Context, uid string) (*models.PublicProfile, error) {
	const op = "services.auth.PublicProfile"

	user, err := s.users.GetUser(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ads, _, err := s.users.ListAds(ctx, models.AdFilter{
		Page:    models.Page{Limit: profileAdsLimit},
		Status:  models.AdApproved,
		UserUID: uid,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if ads == nil {
		ads = []models.Ad{}
	}

	return &models.PublicProfile{
		UID:                 user.UID,
		Name:                user.Name,
		AccountType:         user.AccountType,
		BusinessName:        user.BusinessName,
		BusinessDescription: user.BusinessDescription,
		City:                user.City,
		MemberSince:         user.CreatedAt,
		Ads:                 ads,
	}, nil
}

// ListUsers возвращает страницу пользователей для администратора.
func (s *AuthService) ListUsers(ctx context.Context, page models.Page) ([]models.User, error) {
	const op = "services.auth.ListUsers"
	users, err := s.users.ListUsers(ctx, page.Normalize())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

// DeleteUser удаляет пользователя. Администратор не может удалить сам себя.
func (s *AuthService) DeleteUser(ctx context.Context, actor models.Viewer, uid string) error {
	const op = "services.auth.DeleteUser"
	if actor.UID == uid {
		return fmt.Errorf("%s: %w: cannot delete own account", op, models.ErrForbidden)
	}
	if err := s.users.DeleteUser(ctx, uid); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user deleted", slog.String("op", op), sl.UID(uid), slog.String("by", actor.UID))
	return nil
}
