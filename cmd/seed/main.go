package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Motorcycle is the listing payload accepted by POST /motorcycles.
type Motorcycle struct {
	Name        string   `json:"name"`
	Brand       string   `json:"brand"`
	Model       string   `json:"model"`
	Year        int      `json:"year"`
	CC          int      `json:"cc"`
	DailyRate   string   `json:"daily_rate"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
	Location    string   `json:"location"`
}

// Account is a user the seeder registers or logs in as.
type Account struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

var catalogue = []Motorcycle{
	{
		Name: "Harley-Davidson Street Glide", Brand: "Harley-Davidson", Model: "Street Glide",
		Year: 2023, CC: 1868, DailyRate: "9000", Location: "Mumbai",
		Description: "Experience the open road with this powerful cruiser. Perfect for long rides with comfort and style.",
		Features:    []string{"Cruise Control", "ABS", "Bluetooth Audio", "Heated Grips"},
	},
	{
		Name: "Kawasaki Ninja ZX-10R", Brand: "Kawasaki", Model: "Ninja ZX-10R",
		Year: 2022, CC: 998, DailyRate: "7500", Location: "Delhi",
		Description: "A high-performance sport bike with incredible speed and handling. For experienced riders only.",
		Features:    []string{"Quick Shifter", "Traction Control", "Power Modes", "Cornering ABS"},
	},
	{
		Name: "BMW R 1250 GS Adventure", Brand: "BMW", Model: "R 1250 GS Adventure",
		Year: 2023, CC: 1254, DailyRate: "8500", Location: "Bangalore",
		Description: "The ultimate adventure bike for on and off-road exploration. Comfortable for long journeys.",
		Features:    []string{"Dynamic ESA", "Riding Modes", "TFT Display", "Heated Grips"},
	},
	{
		Name: "Ducati Monster", Brand: "Ducati", Model: "Monster",
		Year: 2022, CC: 937, DailyRate: "6500", Location: "Chennai",
		Description: "Iconic naked bike with aggressive styling and thrilling performance. Perfect for city riding.",
		Features:    []string{"Riding Modes", "ABS", "Traction Control", "LED Lighting"},
	},
	{
		Name: "Honda Africa Twin", Brand: "Honda", Model: "Africa Twin",
		Year: 2023, CC: 1084, DailyRate: "7000", Location: "Hyderabad",
		Description: "Versatile adventure bike built for exploring. Handles both on and off-road conditions with ease.",
		Features:    []string{"DCT Option", "Cruise Control", "Apple CarPlay", "Adjustable Windscreen"},
	},
	{
		Name: "Triumph Bonneville T120", Brand: "Triumph", Model: "Bonneville T120",
		Year: 2022, CC: 1200, DailyRate: "6000", Location: "Pune",
		Description: "Classic styling with modern performance. A comfortable and stylish ride for any occasion.",
		Features:    []string{"Riding Modes", "ABS", "Traction Control", "Heated Grips"},
	},
}

// apiError is a non-2xx answer from the API.
type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Status, strings.TrimSpace(e.Body))
}

func isStatus(err error, status int) bool {
	var apiErr *apiError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type client struct {
	baseURL string
	http    *http.Client
}

// do sends body as JSON with an optional bearer token and decodes a 2xx reply into out.
func (c *client) do(ctx context.Context, method, path, token string, body, out any) error {
	var payload io.Reader
	if body != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return err
		}
		payload = buf
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return &apiError{Status: resp.StatusCode, Body: string(raw)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// signIn registers the account, or logs in when the email is already taken.
func (c *client) signIn(ctx context.Context, acct Account) (string, error) {
	var session struct {
		Token string `json:"token"`
	}
	err := c.do(ctx, http.MethodPost, "/auth/register", "", acct, &session)
	if isStatus(err, http.StatusConflict) {
		log.WithField("email", acct.Email).Info("Account exists, logging in")
		err = c.do(ctx, http.MethodPost, "/auth/login", "", Account{Email: acct.Email, Password: acct.Password}, &session)
	}
	if err != nil {
		return "", fmt.Errorf("sign in %s: %w", acct.Email, err)
	}
	return session.Token, nil
}

// Summary counts what a seed run created.
type Summary struct {
	Motorcycles []string
	Bookings    []string
}

// seed lists the catalogue under owner and places one booking per listing, up to maxBookings, for renter.
func seed(ctx context.Context, c *client, owner, renter Account, maxBookings int, from time.Time) (*Summary, error) {
	ownerToken, err := c.signIn(ctx, owner)
	if err != nil {
		return nil, err
	}
	renterToken, err := c.signIn(ctx, renter)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	for _, m := range catalogue {
		var created struct {
			ID string `json:"id"`
		}
		if err := c.do(ctx, http.MethodPost, "/motorcycles", ownerToken, m, &created); err != nil {
			return summary, fmt.Errorf("create %s: %w", m.Name, err)
		}
		log.WithFields(log.Fields{"id": created.ID, "name": m.Name, "location": m.Location}).Info("Motorcycle listed")
		summary.Motorcycles = append(summary.Motorcycles, created.ID)
	}

	start := from.UTC().AddDate(0, 0, 7)
	for i, id := range summary.Motorcycles {
		if i >= maxBookings {
			break
		}
		req := map[string]string{
			"motorcycle_id": id,
			"start_date":    start.AddDate(0, 0, i*2).Format("2006-01-02"),
			"end_date":      start.AddDate(0, 0, i*2+2).Format("2006-01-02"),
		}
		var created struct {
			ID string `json:"id"`
		}
		err := c.do(ctx, http.MethodPost, "/bookings", renterToken, req, &created)
		if isStatus(err, http.StatusConflict) {
			log.WithField("motorcycle_id", id).Warn("Dates already booked, skipping")
			continue
		}
		if err != nil {
			return summary, fmt.Errorf("book %s: %w", id, err)
		}
		log.WithFields(log.Fields{"id": created.ID, "motorcycle_id": id, "start": req["start_date"], "end": req["end_date"]}).Info("Booking placed")
		summary.Bookings = append(summary.Bookings, created.ID)
	}
	return summary, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	apiURL := strings.TrimRight(getenv("API_BASE_URL", "http://localhost:8080/api"), "/")
	password := getenv("SEED_PASSWORD", "ride-safe-2024")
	owner := Account{Name: "Demo Owner", Email: getenv("SEED_OWNER_EMAIL", "owner@example.com"), Password: password}
	renter := Account{Name: "Demo Renter", Email: getenv("SEED_RENTER_EMAIL", "renter@example.com"), Password: password}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := &client{baseURL: apiURL, http: &http.Client{Timeout: 10 * time.Second}}
	log.WithField("api", apiURL).Info("Seeding demo data")
	summary, err := seed(ctx, c, owner, renter, 3, time.Now())
	if err != nil {
		log.WithError(err).Fatal("Seeding failed")
	}
	log.WithFields(log.Fields{"motorcycles": len(summary.Motorcycles), "bookings": len(summary.Bookings)}).Info("Seeding complete")
}
