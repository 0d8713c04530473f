// Package publish pushes vcontrold reports to an MQTT broker.
//
// Topics below the configured prefix:
//
//	<prefix>/status     "online" or "offline" (retained, last will)
//	<prefix>/device     identity of the heating control as JSON
//	<prefix>/report     the complete report as JSON
//	<prefix>/<command>  one item of the report as JSON
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/zberg/go-vcontrold/pkg/output"
	"github.com/zberg/go-vcontrold/pkg/vcontrold"
)

const (
	statusOnline  = "online"
	statusOffline = "offline"
)

// Config describes the broker connection and topic layout.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	// TopicPrefix defaults to "vcontrold".
	TopicPrefix string
	QoS         byte
	Retained    bool
	// Timeout bounds connecting and every publish. Default is 10 seconds.
	Timeout time.Duration
}

// DefaultConfig returns QoS 1 retained publishing below "vcontrold".
func DefaultConfig() Config {
	return Config{
		Broker:      "tcp://localhost:1883",
		TopicPrefix: "vcontrold",
		QoS:         1,
		Retained:    true,
		Timeout:     10 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TopicPrefix == "" {
		c.TopicPrefix = d.TopicPrefix
	}
	c.TopicPrefix = strings.TrimSuffix(c.TopicPrefix, "/")
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.ClientID == "" {
		c.ClientID = "vcontrold-" + uuid.NewString()
	}
	return c
}

func (c Config) topic(name string) string {
	return c.TopicPrefix + "/" + name
}

// mqttClient is the part of paho.Client the publisher uses.
type mqttClient interface {
	Connect() paho.Token
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// Publisher sends reports to MQTT.
type Publisher struct {
	client mqttClient
	cfg    Config
	logger *slog.Logger
}

// New creates a publisher. The availability topic is set to "offline" by
// the broker when the connection drops.
func New(cfg Config, logger *slog.Logger) *Publisher {
	cfg = cfg.withDefaults()
	p := &Publisher{cfg: cfg, logger: logger}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetKeepAlive(60 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetConnectTimeout(cfg.Timeout).
		SetWill(cfg.topic("status"), statusOffline, cfg.QoS, true).
		SetOnConnectHandler(func(c paho.Client) {
			if logger != nil {
				logger.Info("connected to MQTT broker", "broker", cfg.Broker, "client_id", cfg.ClientID)
			}
			if token := c.Publish(cfg.topic("status"), cfg.QoS, true, statusOnline); token.WaitTimeout(cfg.Timeout) && token.Error() != nil && logger != nil {
				logger.Warn("failed to publish online status", "error", token.Error())
			}
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			if logger != nil {
				logger.Error("connection lost to MQTT broker", "error", err)
			}
		})

	p.client = paho.NewClient(opts)
	return p
}

func newWithClient(client mqttClient, cfg Config, logger *slog.Logger) *Publisher {
	return &Publisher{client: client, cfg: cfg.withDefaults(), logger: logger}
}

// Connect connects to the broker, retrying with exponential backoff until
// ctx is done.
func (p *Publisher) Connect(ctx context.Context) error {
	attempt := 0
	operation := func() error {
		attempt++
		return p.wait(ctx, p.client.Connect())
	}
	notify := func(err error, next time.Duration) {
		if p.logger != nil {
			p.logger.Warn("MQTT connection failed", "attempt", attempt, "retry_in", next, "error", err)
		}
	}

	b := backoff.NewExponentialBackOff()
	b.MaxInterval = time.Minute
	b.MaxElapsedTime = 0
	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify); err != nil {
		return fmt.Errorf("connect to %s: %w", p.cfg.Broker, err)
	}
	return nil
}

// Close marks the client offline and disconnects.
func (p *Publisher) Close() {
	if !p.client.IsConnected() {
		return
	}
	token := p.client.Publish(p.cfg.topic("status"), p.cfg.QoS, true, statusOffline)
	token.WaitTimeout(p.cfg.Timeout)
	p.client.Disconnect(250)
}

// PublishReport sends each item and the complete report. All items are
// attempted; the returned error joins every failure.
func (p *Publisher) PublishReport(ctx context.Context, rec vcontrold.Record) error {
	var errs []error
	for _, item := range rec.Items {
		payload, err := output.ItemJSON(item)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := p.publish(ctx, item.Command, payload); err != nil {
			errs = append(errs, err)
		}
	}

	payload, err := output.ReportJSON(rec)
	if err != nil {
		errs = append(errs, err)
	} else if err := p.publish(ctx, "report", payload); err != nil {
		errs = append(errs, err)
	}

	if p.logger != nil {
		p.logger.Debug("report published", "items", len(rec.Items), "errors", len(errs))
	}
	return errors.Join(errs...)
}

// PublishDevice sends the identity of the heating control.
func (p *Publisher) PublishDevice(ctx context.Context, id vcontrold.DeviceIdentity) error {
	payload, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(id)
	if err != nil {
		return fmt.Errorf("encode device identity: %w", err)
	}
	return p.publish(ctx, "device", payload)
}

func (p *Publisher) publish(ctx context.Context, name string, payload []byte) error {
	topic := p.cfg.topic(name)
	if err := p.wait(ctx, p.client.Publish(topic, p.cfg.QoS, p.cfg.Retained, payload)); err != nil {
		if p.logger != nil {
			p.logger.Error("failed to publish", "topic", topic, "error", err)
		}
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// wait blocks until the token completes, ctx is done or the timeout passes.
func (p *Publisher) wait(ctx context.Context, token paho.Token) error {
	timer := time.NewTimer(p.cfg.Timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("timed out after %s", p.cfg.Timeout)
	}
}
