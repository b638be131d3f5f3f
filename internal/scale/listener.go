// Package scale receives weighings published by networked scales over MQTT.
package scale

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rpattn/cagetrack/internal/domain"
	"github.com/rpattn/cagetrack/internal/metrics"
	"github.com/rpattn/cagetrack/internal/tracking"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultTopic matches every scale under cagetrack/scales.
const DefaultTopic = "cagetrack/scales/+/weighings"

const (
	connectTimeout = 30 * time.Second
	recordTimeout  = 10 * time.Second
	quiesceMillis  = 250
)

// Recorder stores one scale reading.
type Recorder interface {
	RecordScaleWeighing(ctx context.Context, reading tracking.ScaleReading) (domain.Weighing, error)
}

// Config holds the broker connection settings.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
}

// Message is the JSON body a scale publishes.
type Message struct {
	CageCode  string           `json:"cageCode"`
	Kind      string           `json:"kind"`
	Weight    *decimal.Decimal `json:"weight"`
	ScaleID   *string          `json:"scaleId"`
	Timestamp *time.Time       `json:"timestamp"`
}

// Listener subscribes to scale topics and records each reading.
type Listener struct {
	config   Config
	recorder Recorder
	logger   *zap.Logger
	metrics  *metrics.Metrics

	mu     sync.Mutex
	client mqtt.Client
	ctx    context.Context
}

// NewListener creates a listener; call Start to connect.
func NewListener(config Config, recorder Recorder, logger *zap.Logger, m *metrics.Metrics) *Listener {
	if config.Topic == "" {
		config.Topic = DefaultTopic
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Listener{
		config:   config,
		recorder: recorder,
		logger:   logger,
		metrics:  m,
		ctx:      context.Background(),
	}
}

// Start connects to the broker. The subscription is renewed on every reconnect.
func (l *Listener) Start(ctx context.Context) error {
	if strings.TrimSpace(l.config.Broker) == "" {
		return errors.New("mqtt broker is required")
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(l.config.Broker)
	opts.SetClientID(l.config.ClientID)
	opts.SetUsername(l.config.Username)
	opts.SetPassword(l.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(l.onConnect)
	opts.SetConnectionLostHandler(l.onConnectionLost)

	client := mqtt.NewClient(opts)

	l.mu.Lock()
	l.client = client
	l.ctx = ctx
	l.mu.Unlock()

	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("connection to %s timed out", l.config.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", l.config.Broker, err)
	}
	return nil
}

// Stop disconnects from the broker.
func (l *Listener) Stop() {
	l.mu.Lock()
	client := l.client
	l.client = nil
	l.mu.Unlock()

	if client != nil && client.IsConnected() {
		client.Unsubscribe(l.config.Topic).WaitTimeout(time.Second)
		client.Disconnect(quiesceMillis)
	}
}

func (l *Listener) onConnect(client mqtt.Client) {
	l.logger.Info("connected to mqtt broker",
		zap.String("broker", l.config.Broker),
		zap.String("topic", l.config.Topic),
	)
	l.awaitSubscribe(client.Subscribe(l.config.Topic, 1, l.onMessage))
}

func (l *Listener) awaitSubscribe(token mqtt.Token) {
	if !token.WaitTimeout(connectTimeout) {
		l.logger.Error("subscribe timed out",
			zap.String("topic", l.config.Topic),
			zap.Duration("timeout", connectTimeout),
		)
		return
	}
	if err := token.Error(); err != nil {
		l.logger.Error("failed to subscribe", zap.String("topic", l.config.Topic), zap.Error(err))
	}
}

func (l *Listener) onConnectionLost(_ mqtt.Client, err error) {
	l.logger.Warn("connection to mqtt broker lost", zap.String("broker", l.config.Broker), zap.Error(err))
}

func (l *Listener) onMessage(_ mqtt.Client, msg mqtt.Message) {
	l.mu.Lock()
	parent := l.ctx
	l.mu.Unlock()

	ctx, cancel := context.WithTimeout(parent, recordTimeout)
	defer cancel()
	_ = l.HandleMessage(ctx, msg.Topic(), msg.Payload())
}

// HandleMessage decodes and records one payload. Failures are logged and counted.
func (l *Listener) HandleMessage(ctx context.Context, topic string, payload []byte) error {
	reading, err := Decode(topic, payload)
	if err != nil {
		l.metrics.ScaleMessage(metrics.ScaleResultDecodeError)
		l.logger.Warn("discarding undecodable scale message", zap.String("topic", topic), zap.Error(err))
		return err
	}

	weighing, err := l.recorder.RecordScaleWeighing(ctx, reading)
	if err != nil {
		l.metrics.ScaleMessage(metrics.ScaleResultRejected)
		l.logger.Warn("scale reading rejected",
			zap.String("topic", topic),
			zap.String("cage", reading.CageCode),
			zap.Error(err),
		)
		return err
	}

	l.metrics.ScaleMessage(metrics.ScaleResultRecorded)
	l.logger.Debug("scale reading recorded",
		zap.String("cage", reading.CageCode),
		zap.String("weighing", weighing.ID.String()),
	)
	return nil
}

// Decode turns a payload into a reading; the scale id falls back to the topic.
func Decode(topic string, payload []byte) (tracking.ScaleReading, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return tracking.ScaleReading{}, domain.InvalidInputf("invalid scale payload: %v", err)
	}

	if msg.Weight == nil {
		return tracking.ScaleReading{}, domain.InvalidInputf("weight is required")
	}
	kind, err := domain.ParseWeighingKind(msg.Kind)
	if err != nil {
		return tracking.ScaleReading{}, err
	}

	reading := tracking.ScaleReading{
		CageCode:  strings.TrimSpace(msg.CageCode),
		Kind:      kind,
		Weight:    msg.Weight,
		ScaleID:   domain.OptionalString(msg.ScaleID),
		Timestamp: msg.Timestamp,
	}
	if reading.ScaleID == nil {
		if id := ScaleIDFromTopic(topic); id != "" {
			reading.ScaleID = &id
		}
	}
	return reading, nil
}

// ScaleIDFromTopic returns the segment after "scales" in topic, if any.
func ScaleIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	for i := 0; i < len(parts)-1; i++ {
		if parts[i] == "scales" {
			return parts[i+1]
		}
	}
	return ""
}
