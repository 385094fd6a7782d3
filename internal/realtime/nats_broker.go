package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/quocanhngo/chatcore/pkg/logger"
	"go.uber.org/zap"
)

// NATSSubjectPrefix prefixes the channel name to form the subject: realtime.chat.<id>
const NATSSubjectPrefix = "realtime."

// NATSBroker fans events out across instances over core NATS subjects
type NATSBroker struct {
	nc  *nats.Conn
	log *logger.Logger
}

// ConnectNATS dials url and returns a broker owning the connection
func ConnectNATS(url string, log *logger.Logger) (*NATSBroker, error) {
	l := log.Named("nats_broker")
	nc, err := nats.Connect(url,
		nats.Name("chatcore"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				l.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			l.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("natsBroker.Connect: %w", err)
	}
	return &NATSBroker{nc: nc, log: l}, nil
}

func (b *NATSBroker) Publish(_ context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("natsBroker.Publish marshal: %w", err)
	}
	if err := b.nc.Publish(NATSSubjectPrefix+ev.Channel, data); err != nil {
		return fmt.Errorf("natsBroker.Publish: %w", err)
	}
	return nil
}

func (b *NATSBroker) Subscribe(_ context.Context, handler func(Event)) (func(), error) {
	sub, err := b.nc.Subscribe(NATSSubjectPrefix+">", func(m *nats.Msg) {
		var ev Event
		if err := json.Unmarshal(m.Data, &ev); err != nil {
			b.log.Warn("dropping malformed realtime event", zap.String("subject", m.Subject), zap.Error(err))
			return
		}
		handler(ev)
	})
	if err != nil {
		return nil, fmt.Errorf("natsBroker.Subscribe: %w", err)
	}
	if err := b.nc.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("natsBroker.Subscribe flush: %w", err)
	}
	b.log.Info("NATS subscriber started", zap.String("subject", NATSSubjectPrefix+">"))
	return func() { _ = sub.Unsubscribe() }, nil
}

func (b *NATSBroker) Close() error {
	return b.nc.Drain()
}
