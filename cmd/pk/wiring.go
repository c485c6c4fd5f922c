package main

import (
	"github.com/nats-io/nats.go"

	"github.com/alfredjeanlab/parkgate/internal/push"
)

// newPushChannel builds the push channel for the configured transport: NATS
// when a NATS URL is set, the backend websocket otherwise.
func newPushChannel(zones push.ZoneSink, audit push.AuditSink) *push.Channel {
	var dialer push.Dialer
	if cfg.NATSURL != "" {
		opts := []nats.Option{nats.Name("pk")}
		if token := store.Token(); token != "" {
			opts = append(opts, nats.Token(token))
		}
		dialer = &push.NATSDialer{URL: cfg.NATSURL, Options: opts}
	} else {
		dialer = &push.WebsocketDialer{
			URL:    cfg.WSURL,
			Tokens: store,
			Logger: logger.Named("ws"),
		}
	}
	return push.New(dialer, zones, audit, push.Options{
		BaseDelay:   cfg.PushBaseDelay,
		MaxAttempts: cfg.PushMaxAttempts,
		Logger:      logger.Named("push"),
	})
}
