package service

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/JonCoulter/whenly/core/cache"
	"github.com/JonCoulter/whenly/core/config"
	"github.com/JonCoulter/whenly/core/constants"
	coreEntity "github.com/JonCoulter/whenly/core/entity"
	"github.com/JonCoulter/whenly/core/errors"
	"github.com/JonCoulter/whenly/core/logger"
	"github.com/JonCoulter/whenly/core/utils"
	"github.com/JonCoulter/whenly/modules/auth/dto"
	"github.com/JonCoulter/whenly/modules/auth/entity"
	"github.com/JonCoulter/whenly/modules/auth/repository"
	calendarService "github.com/JonCoulter/whenly/modules/calendar/service"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoAPI = "https://www.googleapis.com/oauth2/v2/userinfo"

// AuthService handles Google sign-in and session tokens
type AuthService struct {
	repo        repository.AuthRepositoryInterface
	cache       cache.Cache
	calendarSvc calendarService.CalendarServiceInterface
}

// AuthServiceInterface defines the service contract
type AuthServiceInterface interface {
	GetGoogleAuthURL(ctx context.Context) (string, *errors.AppError)
	HandleGoogleCallback(ctx context.Context, code, state string) (*dto.LoginResponse, *errors.AppError)
	GetMe(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, *errors.AppError)
	RefreshToken(ctx context.Context, refreshToken string) (*dto.RefreshTokenResponse, *errors.AppError)
	Logout(ctx context.Context, token string) *errors.AppError
}

// NewAuthService creates a new auth service
func NewAuthService(repo repository.AuthRepositoryInterface, c cache.Cache, calendarSvc calendarService.CalendarServiceInterface) AuthServiceInterface {
	return &AuthService{
		repo:        repo,
		cache:       c,
		calendarSvc: calendarSvc,
	}
}

func (s *AuthService) oauthConfig() (*oauth2.Config, *errors.AppError) {
	cfg, ok := config.GetSafe()
	if !ok {
		return nil, errors.NewAppError(errors.ErrInternalServer, "config not initialized", nil)
	}
	if cfg.GoogleAPI.ClientID == "" || cfg.GoogleAPI.ClientSecret == "" || cfg.GoogleAPI.RedirectURI == "" {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Google OAuth configuration is missing", nil)
	}

	return &oauth2.Config{
		ClientID:     cfg.GoogleAPI.ClientID,
		ClientSecret: cfg.GoogleAPI.ClientSecret,
		RedirectURL:  cfg.GoogleAPI.RedirectURI,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
			"https://www.googleapis.com/auth/calendar.readonly",
		},
		Endpoint: google.Endpoint,
	}, nil
}

// GetGoogleAuthURL builds the consent URL with a one-time CSRF state token.
func (s *AuthService) GetGoogleAuthURL(ctx context.Context) (string, *errors.AppError) {
	oauthCfg, appErr := s.oauthConfig()
	if appErr != nil {
		return "", appErr
	}

	state := utils.GenerateRandomString(32)
	if err := s.cache.SaveOAuthState(ctx, state); err != nil {
		logger.Error("AuthService:GetGoogleAuthURL:SaveOAuthState:Error:", err)
		return "", errors.NewAppError(errors.ErrInternalServer, "failed to store state token", err)
	}

	return oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// HandleGoogleCallback handles the OAuth callback from Google
func (s *AuthService) HandleGoogleCallback(ctx context.Context, code, state string) (*dto.LoginResponse, *errors.AppError) {
	taken, err := s.cache.TakeOAuthState(ctx, state)
	if err != nil {
		logger.Error("AuthService:HandleGoogleCallback:TakeOAuthState:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to validate state token", err)
	}
	if !taken {
		return nil, errors.NewAppError(errors.ErrUnauthorized, "invalid or expired state token", nil)
	}

	oauthCfg, appErr := s.oauthConfig()
	if appErr != nil {
		return nil, appErr
	}

	token, err := oauthCfg.Exchange(ctx, code)
	if err != nil {
		logger.Error("AuthService:HandleGoogleCallback:Exchange:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to exchange token", err)
	}

	userInfo, err := s.getGoogleUserInfo(ctx, token.AccessToken)
	if err != nil {
		logger.Error("AuthService:HandleGoogleCallback:GetGoogleUserInfo:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to get user info", err)
	}

	user := &entity.User{
		BaseEntity: coreEntity.BaseEntity{ID: uuid.New()},
		Email:      userInfo.Email,
		Name:       userInfo.Name,
	}
	if userInfo.Picture != "" {
		picture := userInfo.Picture
		user.Picture = &picture
	}

	saved, err := s.repo.UpsertUser(ctx, user)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to save user", err)
	}

	// Keep the Google token handle so the calendar module can read the
	// user's calendars later. Login still succeeds if this fails.
	if s.calendarSvc != nil {
		expiresAt := token.Expiry
		if expiresAt.IsZero() {
			expiresAt = time.Now().Add(time.Hour)
		}
		if err := s.calendarSvc.SaveGoogleConnection(ctx, saved.ID, token.AccessToken, token.RefreshToken, expiresAt, saved.Email); err != nil {
			logger.Error("AuthService:HandleGoogleCallback:SaveGoogleConnection:Error:", err)
		}
	}

	accessToken, err := utils.GenerateToken(saved.ID, saved.Email, saved.Name, constants.ScopeTokenAccess)
	if err != nil {
		logger.Error("AuthService:HandleGoogleCallback:GenerateToken:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to generate token", err)
	}
	refreshToken, err := utils.GenerateToken(saved.ID, saved.Email, saved.Name, constants.ScopeTokenRefresh)
	if err != nil {
		logger.Error("AuthService:HandleGoogleCallback:GenerateRefreshToken:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to generate token", err)
	}

	return &dto.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         toUserResponse(saved),
	}, nil
}

// GetMe returns the signed-in user's profile
func (s *AuthService) GetMe(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, *errors.AppError) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to get user", err)
	}
	if user == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "user not found", nil)
	}

	resp := toUserResponse(user)
	return &resp, nil
}

// RefreshToken exchanges a refresh token for a new access token
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*dto.RefreshTokenResponse, *errors.AppError) {
	blacklisted, err := s.cache.IsTokenBlacklisted(ctx, refreshToken)
	if err == nil && blacklisted {
		return nil, errors.NewAppError(errors.ErrUnauthorized, "token is no longer valid", nil)
	}

	claims, err := utils.ValidateAndParseToken(refreshToken)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrUnauthorized, "invalid or expired refresh token", err)
	}
	if claims.Scope != constants.ScopeTokenRefresh {
		return nil, errors.NewAppError(errors.ErrUnauthorized, "token is not a refresh token", nil)
	}

	accessToken, err := utils.GenerateToken(claims.UserID, claims.Email, claims.Name, constants.ScopeTokenAccess)
	if err != nil {
		logger.Error("AuthService:RefreshToken:GenerateToken:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to generate token", err)
	}

	return &dto.RefreshTokenResponse{AccessToken: accessToken}, nil
}

// Logout blacklists the presented token
func (s *AuthService) Logout(ctx context.Context, token string) *errors.AppError {
	if err := s.cache.AddToTokenBlacklist(ctx, token); err != nil {
		logger.Error("AuthService:Logout:AddToTokenBlacklist:Error:", err)
		return errors.NewAppError(errors.ErrInternalServer, "failed to invalidate token", err)
	}
	return nil
}

func (s *AuthService) getGoogleUserInfo(ctx context.Context, accessToken string) (*dto.GoogleUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleUserInfoAPI, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var info dto.GoogleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	return &info, nil
}

func toUserResponse(user *entity.User) dto.UserResponse {
	return dto.UserResponse{
		ID:      user.ID.String(),
		Email:   user.Email,
		Name:    user.Name,
		Picture: user.Picture,
	}
}
