package eventsvc

import (
	"context"

	"github.com/trezcool/tutortrack/core"
)

// LogPublisher writes events to the logger. Used when no broker is configured.
type LogPublisher struct {
	logger core.Logger
}

var _ core.EventPublisher = (*LogPublisher)(nil)

func NewLogPublisher(logger core.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, evt core.Event) error {
	p.logger.Debug("event "+evt.Type, map[string]interface{}{"user_id": evt.UserID, "role": evt.Role, "at": evt.At})
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// New returns an AMQPPublisher when a broker is configured, a LogPublisher otherwise.
func New(conf *core.Config, logger core.Logger) (core.EventPublisher, error) {
	if conf.Events.AMQPURL == "" {
		return NewLogPublisher(logger), nil
	}
	return NewAMQPPublisher(conf, logger)
}
