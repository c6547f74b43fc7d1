package googlecalendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"

	"cuhk-timetable/config"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

var ErrMissingClient = errors.New("googlecalendar: google client_id and client_secret must be configured")

func getConfig(cfg config.Google) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       []string{calendar.CalendarScope},
		Endpoint:     google.Endpoint,
	}
}

func getClient(ctx context.Context, oauthConfig *oauth2.Config, tokenFile string) (*http.Client, error) {
	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		tok, err = getTokenFromWeb(ctx, oauthConfig)
		if err != nil {
			return nil, err
		}
		if err := saveToken(tokenFile, tok); err != nil {
			slog.Warn("unable to cache oauth token", "file", tokenFile, "err", err)
		}
	}
	return oauthConfig.Client(ctx, tok), nil
}

// getTokenFromWeb prints the consent URL and waits for the redirect to hit
// a local listener on the redirect URL's host.
func getTokenFromWeb(ctx context.Context, oauthConfig *oauth2.Config) (*oauth2.Token, error) {
	redirect, err := url.Parse(oauthConfig.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect url: %w", err)
	}
	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("listen for oauth redirect: %w", err)
	}

	codes := make(chan string, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		fmt.Fprintf(w, "Authorization completed. You can close this window.")
		select {
		case codes <- code:
		default:
		}
	})
	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			slog.Error("oauth redirect listener stopped", "err", err)
		}
	}()
	defer server.Shutdown(context.Background())

	authURL := oauthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Go to the following link in your browser to authorize calendar access:\n%v\n", authURL)

	var authCode string
	select {
	case authCode = <-codes:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	tok, err := oauthConfig.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve token from web: %w", err)
	}
	return tok, nil
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

func saveToken(path string, token *oauth2.Token) error {
	slog.Info("saving credential file", "path", path)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

func GetCalendarService(ctx context.Context, cfg config.Google) (*calendar.Service, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrMissingClient
	}
	client, err := getClient(ctx, getConfig(cfg), cfg.TokenFile)
	if err != nil {
		return nil, err
	}
	srv, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Calendar client: %w", err)
	}
	slog.Debug("google calendar client ready")
	return srv, nil
}

func ClearCalendar(ctx context.Context, service *calendar.Service, calendarID string) error {
	events, err := GetAllEvents(ctx, service, calendarID)
	if err != nil {
		return err
	}
	for _, event := range events {
		if event == nil || event.Status == "cancelled" {
			continue
		}
		if err := deleteEvent(ctx, service, calendarID, event); err != nil {
			return err
		}
	}
	slog.Info("all events cleared from google calendar", "calendar", calendarID)
	return nil
}

func deleteEvent(ctx context.Context, service *calendar.Service, calendarID string, event *calendar.Event) error {
	err := service.Events.Delete(calendarID, event.Id).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusGone {
			slog.Debug("event already deleted", "summary", event.Summary, "id", event.Id)
			return nil
		}
		return fmt.Errorf("error deleting event from Google Calendar: %w", err)
	}
	slog.Debug("event removed", "summary", event.Summary, "id", event.Id)
	return nil
}

func GetAllEvents(ctx context.Context, service *calendar.Service, calendarID string) ([]*calendar.Event, error) {
	var allEvents []*calendar.Event
	pageToken := ""
	for {
		events, err := service.Events.List(calendarID).PageToken(pageToken).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("error fetching events from Google Calendar: %w", err)
		}
		allEvents = append(allEvents, events.Items...)

		pageToken = events.NextPageToken
		if pageToken == "" {
			break
		}
	}
	slog.Debug("fetched google calendar events", "count", len(allEvents))
	return allEvents, nil
}

// GetUserCalendars lists the calendars the signed-in account can write to,
// so a calendar id can be picked for sync.
func GetUserCalendars(ctx context.Context, service *calendar.Service) ([]*calendar.CalendarListEntry, error) {
	var entries []*calendar.CalendarListEntry
	err := service.CalendarList.List().MinAccessRole("writer").Pages(ctx, func(list *calendar.CalendarList) error {
		entries = append(entries, list.Items...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error listing Google calendars: %w", err)
	}
	return entries, nil
}
