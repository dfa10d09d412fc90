package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/JonCoulter/whenly/core/cache"
	"github.com/JonCoulter/whenly/core/config"
	"github.com/JonCoulter/whenly/core/constants"
	"github.com/JonCoulter/whenly/core/errors"
	"github.com/JonCoulter/whenly/core/logger"
	"github.com/JonCoulter/whenly/modules/calendar/dto"
	"github.com/JonCoulter/whenly/modules/calendar/entity"
	"github.com/JonCoulter/whenly/modules/calendar/repository"
	"github.com/JonCoulter/whenly/modules/calendar/source"

	"github.com/google/uuid"
)

// CalendarService handles connections, subscriptions and the merged feed
type CalendarService struct {
	repo  repository.CalendarRepositoryInterface
	cache cache.Cache
	merge MergeServiceInterface
}

// CalendarServiceInterface defines the service contract
type CalendarServiceInterface interface {
	SaveGoogleConnection(ctx context.Context, userID uuid.UUID, accessToken, refreshToken string, expiresAt time.Time, email string) error
	GetConnections(ctx context.Context, userID uuid.UUID) ([]dto.CalendarConnectionResponse, *errors.AppError)
	DisconnectCalendar(ctx context.Context, userID uuid.UUID, provider string) *errors.AppError

	AddICSSubscription(ctx context.Context, userID uuid.UUID, req *dto.AddICSSubscriptionRequest) (*dto.ICSSubscriptionResponse, *errors.AppError)
	ListICSSubscriptions(ctx context.Context, userID uuid.UUID) ([]dto.ICSSubscriptionResponse, *errors.AppError)
	RemoveICSSubscription(ctx context.Context, userID uuid.UUID, id uuid.UUID) *errors.AppError

	GetMergedCalendar(ctx context.Context, userID uuid.UUID, windowDays int) (*dto.MergedCalendarResponse, *errors.AppError)
}

// NewCalendarService creates a new calendar service
func NewCalendarService(repo repository.CalendarRepositoryInterface, c cache.Cache, merge MergeServiceInterface) CalendarServiceInterface {
	return &CalendarService{
		repo:  repo,
		cache: c,
		merge: merge,
	}
}

// SaveGoogleConnection stores or refreshes the user's Google token handle
func (s *CalendarService) SaveGoogleConnection(ctx context.Context, userID uuid.UUID, accessToken, refreshToken string, expiresAt time.Time, email string) error {
	conn := &entity.CalendarConnection{
		UserID:         userID,
		Provider:       entity.ProviderGoogle,
		AccessToken:    accessToken,
		RefreshToken:   refreshToken,
		TokenExpiresAt: expiresAt,
		CalendarEmail:  email,
	}

	_, err := s.repo.UpsertConnection(ctx, conn)
	return err
}

// GetConnections returns all calendar connections for a user
func (s *CalendarService) GetConnections(ctx context.Context, userID uuid.UUID) ([]dto.CalendarConnectionResponse, *errors.AppError) {
	conn, err := s.repo.GetConnection(ctx, userID, entity.ProviderGoogle)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to get connections", err)
	}

	result := []dto.CalendarConnectionResponse{}
	if conn != nil {
		result = append(result, dto.CalendarConnectionResponse{
			ID:            conn.ID.String(),
			Provider:      conn.Provider,
			CalendarEmail: conn.CalendarEmail,
			IsActive:      conn.IsActive,
			ConnectedAt:   conn.CreatedAt.Format(time.RFC3339),
		})
	}
	return result, nil
}

// DisconnectCalendar deactivates a provider connection
func (s *CalendarService) DisconnectCalendar(ctx context.Context, userID uuid.UUID, provider string) *errors.AppError {
	if err := s.repo.DeleteConnection(ctx, userID, provider); err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "Failed to disconnect calendar", err)
	}
	return nil
}

// AddICSSubscription registers a new ICS feed for the user
func (s *CalendarService) AddICSSubscription(ctx context.Context, userID uuid.UUID, req *dto.AddICSSubscriptionRequest) (*dto.ICSSubscriptionResponse, *errors.AppError) {
	parsed, err := url.ParseRequestURI(req.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Subscription URL must be an http(s) URL", err)
	}

	label := req.Label
	if label == "" {
		label = parsed.Host
	}

	saved, err := s.repo.AddICSSubscription(ctx, &entity.ICSSubscription{
		UserID: userID,
		Label:  label,
		URL:    req.URL,
	})
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to add subscription", err)
	}

	s.invalidateMergedFeed(ctx, userID)

	return &dto.ICSSubscriptionResponse{ID: saved.ID.String(), Label: saved.Label}, nil
}

// ListICSSubscriptions lists the user's ICS feeds
func (s *CalendarService) ListICSSubscriptions(ctx context.Context, userID uuid.UUID) ([]dto.ICSSubscriptionResponse, *errors.AppError) {
	subs, err := s.repo.GetICSSubscriptions(ctx, userID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to list subscriptions", err)
	}

	result := make([]dto.ICSSubscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		result = append(result, dto.ICSSubscriptionResponse{ID: sub.ID.String(), Label: sub.Label})
	}
	return result, nil
}

// RemoveICSSubscription deletes one of the user's ICS feeds
func (s *CalendarService) RemoveICSSubscription(ctx context.Context, userID uuid.UUID, id uuid.UUID) *errors.AppError {
	if err := s.repo.DeleteICSSubscription(ctx, userID, id); err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "Failed to remove subscription", err)
	}
	s.invalidateMergedFeed(ctx, userID)
	return nil
}

// GetMergedCalendar builds the user's source list (one per Google calendar
// plus every ICS subscription) and merges them into a single feed. The
// result is cached briefly so page refreshes do not refetch every feed.
func (s *CalendarService) GetMergedCalendar(ctx context.Context, userID uuid.UUID, windowDays int) (*dto.MergedCalendarResponse, *errors.AppError) {
	if windowDays <= 0 {
		windowDays = constants.MergeDefaultWindowDays
	}

	cacheKey := fmt.Sprintf("calendar:merged:%s:%d", userID, windowDays)
	var cached dto.MergedCalendarResponse
	if ok, err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil && ok {
		return &cached, nil
	}

	sources, appErr := s.buildSources(ctx, userID)
	if appErr != nil {
		return nil, appErr
	}

	timeMin := time.Now().UTC().Truncate(24 * time.Hour)
	timeMax := timeMin.AddDate(0, 0, windowDays)

	merged, appErr := s.merge.Merge(ctx, sources, timeMin, timeMax, constants.MergeDefaultPerSourceMax)
	if appErr != nil {
		return nil, appErr
	}

	if err := s.cache.SetJSON(ctx, cacheKey, merged, constants.MergeFeedCacheTTL); err != nil {
		logger.Error("CalendarService:GetMergedCalendar:Cache", err)
	}

	return merged, nil
}

func (s *CalendarService) buildSources(ctx context.Context, userID uuid.UUID) ([]source.CalendarSource, *errors.AppError) {
	var sources []source.CalendarSource

	conn, err := s.repo.GetConnection(ctx, userID, entity.ProviderGoogle)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to load calendar connection", err)
	}

	if conn != nil {
		accessToken, tokenErr := s.ensureValidToken(ctx, conn)
		if tokenErr != nil {
			logger.Error("CalendarService:BuildSources:Token", tokenErr)
		} else {
			calendars, listErr := source.ListCalendars(ctx, accessToken)
			if listErr != nil {
				logger.Error("CalendarService:BuildSources:ListCalendars", listErr)
			}
			for _, cal := range calendars {
				label := cal[1]
				if label == "" {
					label = cal[0]
				}
				sources = append(sources, source.NewGoogleSource(accessToken, cal[0], label))
			}
		}
	}

	subs, err := s.repo.GetICSSubscriptions(ctx, userID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to load subscriptions", err)
	}
	for _, sub := range subs {
		sources = append(sources, source.NewICSSource(sub.URL, sub.Label))
	}

	return sources, nil
}

// ensureValidToken refreshes the Google access token when it is within five
// minutes of expiry.
func (s *CalendarService) ensureValidToken(ctx context.Context, conn *entity.CalendarConnection) (string, error) {
	if time.Now().Before(conn.TokenExpiresAt.Add(-5 * time.Minute)) {
		return conn.AccessToken, nil
	}

	logger.Info("ensureValidToken:RefreshingToken", "user_id", conn.UserID)

	cfg, ok := config.GetSafe()
	if !ok {
		return "", fmt.Errorf("configuration not loaded")
	}

	data := url.Values{}
	data.Set("client_id", cfg.GoogleAPI.ClientID)
	data.Set("client_secret", cfg.GoogleAPI.ClientSecret)
	data.Set("refresh_token", conn.RefreshToken)
	data.Set("grant_type", "refresh_token")

	resp, err := http.PostForm("https://oauth2.googleapis.com/token", data)
	if err != nil {
		logger.Error("ensureValidToken:PostFormError", err)
		return "", err
	}
	defer resp.Body.Close()

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		logger.Error("ensureValidToken:DecodeError", err)
		return "", err
	}

	if errMsg, ok := result["error"].(string); ok {
		errDesc, _ := result["error_description"].(string)
		logger.Error("ensureValidToken:GoogleError", "error", errMsg, "description", errDesc)
		return "", fmt.Errorf("Google token refresh error: %s - %s", errMsg, errDesc)
	}

	accessToken, ok := result["access_token"].(string)
	if !ok || accessToken == "" {
		return "", fmt.Errorf("no access_token in response")
	}

	expiresIn, ok := result["expires_in"].(float64)
	if !ok {
		expiresIn = 3600
	}

	conn.AccessToken = accessToken
	conn.TokenExpiresAt = time.Now().Add(time.Duration(int(expiresIn)) * time.Second)

	if err := s.repo.UpdateConnectionToken(ctx, conn); err != nil {
		logger.Error("Failed to update token", "error", err)
	}

	return accessToken, nil
}

func (s *CalendarService) invalidateMergedFeed(ctx context.Context, userID uuid.UUID) {
	// Only the default window is invalidated eagerly; other windows age out
	// with the short TTL.
	key := fmt.Sprintf("calendar:merged:%s:%d", userID, constants.MergeDefaultWindowDays)
	if err := s.cache.Del(ctx, key); err != nil {
		logger.Error("CalendarService:InvalidateMergedFeed", err)
	}
}
