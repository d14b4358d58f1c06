package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"daytrader/src/models"
)

// CalendarClient resolves trading sessions from the Tradier market
// calendar endpoint. Responses are cached per month; the calendar does
// not change within a run.
type CalendarClient struct {
	URL         string
	BearerToken string
	Location    *time.Location

	cached      *models.MarketCalendar
	cachedMonth string
}

func NewCalendarClient(url, bearerToken string) (*CalendarClient, error) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return nil, fmt.Errorf("NewCalendarClient: failed to load exchange timezone: %w", err)
	}

	return &CalendarClient{URL: url, BearerToken: bearerToken, Location: loc}, nil
}

// SessionOnOrAfter returns the first open session on or after now, or
// nil when neither this month nor the next has one.
func (c *CalendarClient) SessionOnOrAfter(now time.Time) (*models.Calendar, error) {
	now = now.In(c.Location)

	for _, month := range []time.Time{now, now.AddDate(0, 1, 0)} {
		calendar, err := c.fetchMonth(month)
		if err != nil {
			return nil, err
		}

		session, err := nextOpenSession(calendar, now, c.Location)
		if err != nil {
			return nil, err
		}

		if session != nil {
			return session, nil
		}
	}

	return nil, nil
}

func (c *CalendarClient) fetchMonth(t time.Time) (*models.MarketCalendar, error) {
	month := t.Format("2006-01")
	if c.cached != nil && c.cachedMonth == month {
		return c.cached, nil
	}

	log.Debugf("fetching market calendar for %v", month)

	client := http.Client{
		Timeout: 10 * time.Second,
	}

	req, err := http.NewRequest(http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetchMonth: failed to create request: %w", err)
	}

	q := req.URL.Query()
	q.Add("month", t.Format("01"))
	q.Add("year", t.Format("2006"))
	req.URL.RawQuery = q.Encode()

	req.Header.Add("Accept", "application/json")
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.BearerToken))

	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetchMonth: failed to fetch market calendar: %w", err)
	}

	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetchMonth: failed to fetch market calendar, http code %v", res.Status)
	}

	var dto models.MarketCalendar
	if err := json.NewDecoder(res.Body).Decode(&dto); err != nil {
		return nil, fmt.Errorf("fetchMonth: failed to decode json: %w", err)
	}

	c.cached = &dto
	c.cachedMonth = month

	return &dto, nil
}

// nextOpenSession scans the month for the first day with an open market
// on or after now's date and builds its trading window in loc.
func nextOpenSession(calendar *models.MarketCalendar, now time.Time, loc *time.Location) (*models.Calendar, error) {
	today := now.Format("2006-01-02")

	for _, day := range calendar.Calendar.Days.Day {
		if day.Date < today || day.Status != "open" {
			continue
		}

		open, err := combineDateTime(day.Date, day.Open.Start, loc)
		if err != nil {
			return nil, fmt.Errorf("nextOpenSession: bad open time for %s: %w", day.Date, err)
		}

		close_, err := combineDateTime(day.Date, day.Open.End, loc)
		if err != nil {
			return nil, fmt.Errorf("nextOpenSession: bad close time for %s: %w", day.Date, err)
		}

		return &models.Calendar{Date: day.Date, MarketOpen: open, MarketClose: close_}, nil
	}

	return nil, nil
}

func combineDateTime(date, clock string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", fmt.Sprintf("%s %s", date, clock), loc)
}
