package publisher

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

type NATSPublisher struct {
	nc          *nats.Conn
	prefix      string
	logSubjects bool
	metrics     PublisherMetrics
}

type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	PublishObserve(d time.Duration)
	NATSSetConnected(connected bool)
}

// NewNATSPublisher connects to url. Subjects are rooted at prefix, which
// defaults to "playback". The connection reconnects forever; m may be nil.
func NewNATSPublisher(url, prefix string, logSubjects bool, m PublisherMetrics) (*NATSPublisher, error) {
	connected := func(up bool) {
		if m != nil {
			m.NATSSetConnected(up)
		}
	}
	nc, err := nats.Connect(url,
		nats.Name("trip-playback"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			connected(false)
			log.Printf("nats disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			connected(true)
			log.Printf("nats reconnected to %s", c.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			connected(false)
			log.Printf("nats connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	connected(true)
	if prefix == "" {
		prefix = "playback"
	}
	return &NATSPublisher{nc: nc, prefix: subjectToken(prefix), logSubjects: logSubjects, metrics: m}, nil
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.nc.Close()
	}
}

// PositionMessage is published on every playback tick.
type PositionMessage struct {
	SessionID string    `json:"sessionId"`
	Route     string    `json:"route"`
	Timestamp time.Time `json:"timestamp"`
	State     string    `json:"state"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Heading   float64   `json:"heading"`
	Progress  float64   `json:"progress"`
	Distance  float64   `json:"distance"`
	SpeedMps  float64   `json:"speedMps"`
}

// NoticeMessage carries the panel notifications and passed stops.
type NoticeMessage struct {
	SessionID string    `json:"sessionId"`
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message,omitempty"`
	StopID    string    `json:"stopId,omitempty"`
}

func (p *NATSPublisher) PublishPosition(sessionID string, msg PositionMessage) error {
	return p.publish(p.Subject(sessionID, "position"), msg)
}

func (p *NATSPublisher) PublishNotice(sessionID string, msg NoticeMessage) error {
	return p.publish(p.Subject(sessionID, "notice"), msg)
}

// Subject builds <prefix>.<session>.<kind>.
func (p *NATSPublisher) Subject(sessionID, kind string) string {
	return fmt.Sprintf("%s.%s.%s", p.prefix, subjectToken(sessionID), kind)
}

func (p *NATSPublisher) publish(subject string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if p.logSubjects {
		log.Printf("nats publish subject=%s", subject)
	}
	start := time.Now()
	err = p.nc.Publish(subject, b)
	if p.metrics != nil {
		p.metrics.PublishObserve(time.Since(start))
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	return err
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
