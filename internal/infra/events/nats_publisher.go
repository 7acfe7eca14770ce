package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/AJ-pmn09/CalmCloud-sub002/internal/domain/reminder"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// Publisher is the subset of *nats.Conn the summary publisher needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// SummaryPublisher publishes each RunSummary as JSON for ops consumers.
// Publishing is fire-and-forget: a broker outage never affects a run.
type SummaryPublisher struct {
	conn    Publisher
	subject string
	logger  *logrus.Entry
}

func NewSummaryPublisher(conn Publisher, subject string, logger *logrus.Entry) *SummaryPublisher {
	return &SummaryPublisher{conn: conn, subject: subject, logger: logger}
}

// Connect dials NATS with reconnects enabled.
func Connect(url string, logger *logrus.Entry) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("checkin-reminder-engine"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.WithError(err).Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}

func (p *SummaryPublisher) ObserveRun(s *reminder.RunSummary) {
	data, err := json.Marshal(s)
	if err != nil {
		p.logger.WithError(err).Error("Failed to encode run summary")
		return
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		p.logger.WithError(err).WithField("subject", p.subject).Warn("Failed to publish run summary")
		return
	}
	p.logger.WithFields(logrus.Fields{"subject": p.subject, "run_id": s.RunID}).Debug("Published run summary")
}
