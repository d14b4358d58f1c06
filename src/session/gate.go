package session

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"daytrader/src/models"
)

// CalendarSource yields the trading session for today or the next open
// day on or after it, or nil when the calendar has no upcoming session.
type CalendarSource interface {
	SessionOnOrAfter(now time.Time) (*models.Calendar, error)
}

// Gate decides whether trading should begin for the day and, when the
// market has not opened yet, performs the single coarse wait until it
// does. This is the only blocking wait before the topology runs.
type Gate struct {
	Calendar CalendarSource

	// OpenBuffer is added to the wait so the first bars exist by the
	// time the pipeline starts consuming.
	OpenBuffer time.Duration

	// CoolDown extends the wait past the open to skip the volatile
	// first minutes of the session.
	CoolDown time.Duration
}

type GateResult struct {
	Proceed bool
	Window  *models.Calendar
}

// Evaluate queries the calendar once and decides whether to trade. With
// bypass set it proceeds immediately regardless of calendar state. A
// cancelled context during the wait abandons the session without
// trading; no partial topology is ever constructed after that.
func (g *Gate) Evaluate(ctx context.Context, now time.Time, bypass bool) (GateResult, error) {
	cal, err := g.Calendar.SessionOnOrAfter(now)
	if err != nil {
		return GateResult{}, fmt.Errorf("Gate.Evaluate: failed to resolve session: %w", err)
	}

	if cal == nil {
		log.Warn("no upcoming trading session on the calendar")
		return GateResult{}, nil
	}

	if bypass {
		log.Warnf("market schedule bypassed, proceeding with session %s", cal.Date)
		return GateResult{Proceed: true, Window: cal}, nil
	}

	today := now.Format("2006-01-02")
	if cal.Date > today {
		log.Infof("market closed today, next session on %s", cal.Date)
		return GateResult{Window: cal}, nil
	}

	if !now.Before(cal.MarketClose) {
		log.Info("missed market close, try again next trading day, or bypass")
		return GateResult{Window: cal}, nil
	}

	if wait := cal.MarketOpen.Sub(now); wait > 0 {
		wait += g.OpenBuffer + g.CoolDown
		log.Infof("waiting %v for market open", wait)

		select {
		case <-ctx.Done():
			log.Warn("wait for market open interrupted")
			return GateResult{Window: cal}, nil
		case <-time.After(wait):
		}
	}

	return GateResult{Proceed: true, Window: cal}, nil
}
