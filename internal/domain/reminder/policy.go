// internal/domain/reminder/policy.go
package reminder

import (
	"math"
	"time"
)

// Decision is the pure outcome of evaluating a Candidate at a point in time.
type Decision struct {
	Tier                   Tier
	ShouldSend             bool
	EffectiveIntervalHours int
}

// EffectiveInterval returns EffectiveIntervalHours as a duration.
func (d Decision) EffectiveInterval() time.Duration {
	return time.Duration(d.EffectiveIntervalHours) * time.Hour
}

// EscalationRule maps a minimum number of whole days without a check-in to a tier.
// IntervalHours == 0 means "use the student's own reminder interval".
// AlwaysSend skips the tier's own recency check; the global minimum gap still applies.
type EscalationRule struct {
	MinDays       int
	Tier          Tier
	IntervalHours int
	AlwaysSend    bool
}

// EscalationRules is ordered from most to least severe. The first matching rule wins.
var EscalationRules = []EscalationRule{
	{MinDays: 3, Tier: TierCritical, IntervalHours: 24, AlwaysSend: true},
	{MinDays: 2, Tier: TierEscalated, IntervalHours: 24},
	{MinDays: 1, Tier: TierNormal},
}

// Decide evaluates the default rule table.
func Decide(c *Candidate, now time.Time) Decision {
	return DecideWith(EscalationRules, c, now)
}

// DecideWith evaluates c against rules. It has no side effects.
func DecideWith(rules []EscalationRule, c *Candidate, now time.Time) Decision {
	days := int(math.Floor(c.DaysSinceCheckin()))

	rule, ok := matchRule(rules, days)
	if !ok {
		// Not yet eligible.
		return Decision{Tier: TierNormal, ShouldSend: false, EffectiveIntervalHours: c.IntervalHours()}
	}

	interval := rule.IntervalHours
	if interval <= 0 {
		interval = c.IntervalHours()
	}
	d := Decision{Tier: rule.Tier, EffectiveIntervalHours: interval}

	if rule.AlwaysSend {
		d.ShouldSend = true
	} else {
		d.ShouldSend = !c.LastReminderSentAt.Valid || now.Sub(c.LastReminderSentAt.Time) >= d.EffectiveInterval()
	}

	// Global minimum gap, applied regardless of tier.
	if d.ShouldSend && c.LastReminderSentAt.Valid && now.Sub(c.LastReminderSentAt.Time) < d.EffectiveInterval() {
		d.ShouldSend = false
	}
	return d
}

func matchRule(rules []EscalationRule, days int) (EscalationRule, bool) {
	for _, r := range rules {
		if days >= r.MinDays {
			return r, true
		}
	}
	return EscalationRule{}, false
}
