package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"slot-service/internal/schedule"
)

// GoogleCalendarConfig holds the OAuth2 client used to read calendars.
type GoogleCalendarConfig struct {
	Config *oauth2.Config

	// Endpoint overrides the Calendar API base URL.
	Endpoint string
}

// NewGoogleCalendarConfig returns nil unless all three settings are present.
func NewGoogleCalendarConfig(clientID, clientSecret, redirectURL string) *GoogleCalendarConfig {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil
	}
	return &GoogleCalendarConfig{Config: &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{calendar.CalendarReadonlyScope},
		Endpoint:     google.Endpoint,
	}}
}

func (g *GoogleCalendarConfig) service(ctx context.Context, token *oauth2.Token) (*calendar.Service, error) {
	opts := []option.ClientOption{option.WithHTTPClient(g.Config.Client(ctx, token))}
	if g.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(g.Endpoint))
	}
	return calendar.NewService(ctx, opts...)
}

// googleToken reads the caller's OAuth2 token from the X-Google-Token header.
func googleToken(c *gin.Context) (*oauth2.Token, bool) {
	tokenStr := c.GetHeader("X-Google-Token")
	if tokenStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Google token required in X-Google-Token header"})
		return nil, false
	}
	var token oauth2.Token
	if err := json.Unmarshal([]byte(tokenStr), &token); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid token format"})
		return nil, false
	}
	return &token, true
}

func (a *App) calendarConfigured(c *gin.Context) bool {
	if a.Calendar == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google Calendar not configured"})
		return false
	}
	return true
}

// GET /api/calendar/auth
func (a *App) GoogleAuthHandler(c *gin.Context) {
	if !a.calendarConfigured(c) {
		return
	}
	state := fmt.Sprintf("tenant_%s_%d", tenantID(c), time.Now().Unix())
	url := a.Calendar.Config.AuthCodeURL(state, oauth2.AccessTypeOffline)
	c.JSON(http.StatusOK, gin.H{
		"auth_url": url,
		"state":    state,
	})
}

// GET /oauth2callback
func (a *App) GoogleOAuth2CallbackHandler(c *gin.Context) {
	if !a.calendarConfigured(c) {
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authorization code required"})
		return
	}

	token, err := a.Calendar.Config.Exchange(c.Request.Context(), code)
	if err != nil {
		a.logger().Warn("google token exchange failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to exchange code for token"})
		return
	}

	// The caller sends this back in X-Google-Token; nothing is stored server-side.
	tokenJSON, _ := json.Marshal(token)
	c.JSON(http.StatusOK, gin.H{
		"message": "Authorization successful",
		"state":   c.Query("state"),
		"token":   string(tokenJSON),
	})
}

type CalendarInfo struct {
	ID          string `json:"id"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	Primary     bool   `json:"primary"`
	AccessRole  string `json:"access_role"`
}

// GET /api/calendar/calendars
func (a *App) GetGoogleCalendarList(c *gin.Context) {
	if !a.calendarConfigured(c) {
		return
	}
	token, ok := googleToken(c)
	if !ok {
		return
	}
	srv, err := a.Calendar.service(c.Request.Context(), token)
	if err != nil {
		a.respondError(c, fmt.Errorf("create calendar service: %w", err))
		return
	}

	list, err := srv.CalendarList.List().Context(c.Request.Context()).Do()
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("failed to retrieve calendars: %v", err)})
		return
	}
	calendars := make([]CalendarInfo, 0, len(list.Items))
	for _, item := range list.Items {
		calendars = append(calendars, CalendarInfo{
			ID:          item.Id,
			Summary:     item.Summary,
			Description: item.Description,
			Primary:     item.Primary,
			AccessRole:  item.AccessRole,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"calendars": calendars,
		"count":     len(calendars),
	})
}

type importBlackoutsRequest struct {
	CalendarID string `json:"calendar_id"`
	StartDate  string `json:"start_date" binding:"required"`
	EndDate    string `json:"end_date" binding:"required"`
}

// POST /api/templates/:id/blackouts/google
//
// Adds a blackout exception to the template for every day covered by an
// all-day event in the calendar. Days that already have an exception keep it.
func (a *App) ImportGoogleBlackoutsHandler(c *gin.Context) {
	if !a.calendarConfigured(c) {
		return
	}
	token, ok := googleToken(c)
	if !ok {
		return
	}
	var req importBlackoutsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.CalendarID == "" {
		req.CalendarID = "primary"
	}
	from, to, err := parseRange(req.StartDate, req.EndDate, a.maxRangeDays())
	if err != nil {
		a.respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	tpl, found, err := a.Templates.GetTemplate(ctx, tenantID(c), c.Param("id"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "template not found"})
		return
	}

	srv, err := a.Calendar.service(ctx, token)
	if err != nil {
		a.respondError(c, fmt.Errorf("create calendar service: %w", err))
		return
	}
	var events []*calendar.Event
	err = srv.Events.List(req.CalendarID).
		SingleEvents(true).
		OrderBy("startTime").
		TimeMin(from.Time().Format(time.RFC3339)).
		TimeMax(to.AddDays(1).Time().Format(time.RFC3339)).
		Pages(ctx, func(page *calendar.Events) error {
			events = append(events, page.Items...)
			return nil
		})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("failed to retrieve events: %v", err)})
		return
	}

	added := []schedule.Date{}
	for _, d := range blackoutDatesFromEvents(events, from, to) {
		if tpl.Config.AddBlackout(d) {
			added = append(added, d)
		}
	}
	if len(added) > 0 {
		ok, err := a.Templates.UpdateTemplate(ctx, &tpl)
		if err != nil {
			a.respondError(c, fmt.Errorf("update template: %w", err))
			return
		}
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "template not found"})
			return
		}
	}

	a.logger().Info("imported calendar blackouts",
		zap.String("tenant_id", tpl.TenantID),
		zap.String("template_id", tpl.ID),
		zap.String("calendar_id", req.CalendarID),
		zap.Int("events", len(events)),
		zap.Int("added", len(added)),
	)
	c.JSON(http.StatusOK, gin.H{
		"added":    added,
		"count":    len(added),
		"template": tpl,
	})
}

// blackoutDatesFromEvents returns the sorted, distinct days within [from, to]
// covered by confirmed all-day events. Google reports all-day events with an
// exclusive end date.
func blackoutDatesFromEvents(events []*calendar.Event, from, to schedule.Date) []schedule.Date {
	seen := make(map[schedule.Date]bool)
	for _, ev := range events {
		if ev == nil || ev.Status == "cancelled" || ev.Start == nil || ev.Start.Date == "" {
			continue
		}
		start, err := schedule.ParseDate(ev.Start.Date)
		if err != nil {
			continue
		}
		end := start.AddDays(1)
		if ev.End != nil && ev.End.Date != "" {
			if e, err := schedule.ParseDate(ev.End.Date); err == nil && e.After(start) {
				end = e
			}
		}
		for d := start; d.Before(end); d = d.AddDays(1) {
			if !d.Before(from) && !d.After(to) {
				seen[d] = true
			}
		}
	}

	out := make([]schedule.Date, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
