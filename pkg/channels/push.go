package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher is the part of an MQTT client the push sender needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

type MQTTSettings struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
}

// MQTTPublisher wraps a connected paho client.
type MQTTPublisher struct {
	client mqtt.Client
	qos    byte
}

func NewMQTTPublisher(settings MQTTSettings) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(settings.Broker)
	opts.SetClientID(settings.ClientID)
	if settings.Username != "" {
		opts.SetUsername(settings.Username)
	}
	if settings.Password != "" {
		opts.SetPassword(settings.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt: connect %s: %w", settings.Broker, token.Error())
	}
	return &MQTTPublisher{client: client, qos: settings.QoS}, nil
}

func (p *MQTTPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	token := p.client.Publish(topic, p.qos, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt: publish %s: %w", topic, err)
	}
	return nil
}

func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}

// PushSender publishes to the recipient's device topic. The contact, when
// set, overrides the default topic.
type PushSender struct {
	Publisher   Publisher
	TopicPrefix string
}

func NewPushSender(publisher Publisher, topicPrefix string) *PushSender {
	if topicPrefix == "" {
		topicPrefix = "alerts/recipients"
	}
	return &PushSender{Publisher: publisher, TopicPrefix: strings.TrimSuffix(topicPrefix, "/")}
}

func (s *PushSender) Topic(msg Message) string {
	if msg.Contact != "" {
		return msg.Contact
	}
	return s.TopicPrefix + "/" + msg.RecipientID
}

func (s *PushSender) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("push: encode %s: %w", msg.NotificationID, err)
	}
	return s.Publisher.Publish(ctx, s.Topic(msg), payload)
}
