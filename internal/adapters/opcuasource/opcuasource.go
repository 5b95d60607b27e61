// Package opcuasource reads rig sensors from an OPC UA server. Unlike a
// streaming subscription, the control loop wants exactly one fresh reading
// per tick, so the source issues a batched attribute read on each Sample.
package opcuasource

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/emrig/pulsegate/internal/domain"
	"github.com/emrig/pulsegate/internal/ports"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"
)

// Config captures the runtime details required to open an OPC UA session.
// Nodes maps each metric name to the node id that carries it; all four
// metrics must be mapped.
type Config struct {
	Endpoint        string            `yaml:"endpoint"`
	Username        string            `yaml:"username"`
	Password        string            `yaml:"password"`
	SecurityMode    string            `yaml:"security_mode"`
	SecurityPolicy  string            `yaml:"security_policy"`
	ApplicationName string            `yaml:"application_name"`
	ReadTimeout     time.Duration     `yaml:"read_timeout"`
	Nodes           map[string]string `yaml:"nodes"`
}

func (c *Config) ApplyDefaults() {
	if c.SecurityMode == "" {
		c.SecurityMode = "None"
	}
	if c.SecurityPolicy == "" {
		c.SecurityPolicy = "None"
	}
	if c.ApplicationName == "" {
		c.ApplicationName = "PulseGate Rig"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 500 * time.Millisecond
	}
}

func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("%w: opcua endpoint is required", domain.ErrInvalidConfiguration)
	}
	for _, m := range domain.Metrics {
		if c.Nodes[string(m)] == "" {
			return fmt.Errorf("%w: no opcua node mapped for metric %q", domain.ErrInvalidConfiguration, m)
		}
	}
	for name := range c.Nodes {
		if !knownMetric(name) {
			return fmt.Errorf("%w: unknown metric %q in opcua node map", domain.ErrInvalidConfiguration, name)
		}
	}
	return nil
}

func knownMetric(name string) bool {
	for _, m := range domain.Metrics {
		if string(m) == name {
			return true
		}
	}
	return false
}

type Source struct {
	cfg     Config
	nodeIDs []*ua.NodeID

	mu     sync.Mutex
	client *opcua.Client
	closed bool
	last   time.Time
}

// New parses the node map and connects to the endpoint. The connection is
// held for the life of the source; gopcua reconnects on transient drops.
func New(ctx context.Context, cfg Config) (*Source, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	nodeIDs := make([]*ua.NodeID, len(domain.Metrics))
	for i, m := range domain.Metrics {
		id, err := ua.ParseNodeID(cfg.Nodes[string(m)])
		if err != nil {
			return nil, fmt.Errorf("%w: parse node id %q for %s: %v",
				domain.ErrInvalidConfiguration, cfg.Nodes[string(m)], m, err)
		}
		nodeIDs[i] = id
	}

	opts := []opcua.Option{
		opcua.SecurityModeString(normalizeSecurityMode(cfg.SecurityMode)),
		opcua.SecurityPolicy(normalizeSecurityPolicy(cfg.SecurityPolicy)),
		opcua.ApplicationName(cfg.ApplicationName),
		opcua.AutoReconnect(true),
	}
	if cfg.Username != "" {
		opts = append(opts, opcua.AuthUsername(cfg.Username, cfg.Password))
	} else {
		opts = append(opts, opcua.AuthAnonymous())
	}

	client, err := opcua.NewClient(cfg.Endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("opcua new client: %w", err)
	}
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("opcua connect %s: %w", cfg.Endpoint, err)
	}

	return &Source{cfg: cfg, nodeIDs: nodeIDs, client: client}, nil
}

// Sample reads all mapped nodes in one request. Any transport failure, bad
// status code, or non-numeric value is reported as an invalid reading so the
// control loop treats the sensor outage as unsafe.
func (s *Source) Sample(ctx context.Context) (domain.Reading, error) {
	s.mu.Lock()
	client := s.client
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return domain.Reading{}, fmt.Errorf("%w: opcua source is closed", domain.ErrInvalidReading)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()

	req := &ua.ReadRequest{
		TimestampsToReturn: ua.TimestampsToReturnServer,
		NodesToRead:        make([]*ua.ReadValueID, len(s.nodeIDs)),
	}
	for i, id := range s.nodeIDs {
		req.NodesToRead[i] = &ua.ReadValueID{NodeID: id, AttributeID: ua.AttributeIDValue}
	}

	resp, err := client.Read(ctx, req)
	if err != nil {
		return domain.Reading{}, fmt.Errorf("%w: opcua read: %v", domain.ErrInvalidReading, err)
	}
	reading, err := s.decodeReading(resp.Results)
	if err != nil {
		return domain.Reading{}, err
	}
	return s.clampForward(reading), nil
}

func (s *Source) decodeReading(results []*ua.DataValue) (domain.Reading, error) {
	if len(results) != len(s.nodeIDs) {
		return domain.Reading{}, fmt.Errorf("%w: opcua read returned %d results, want %d",
			domain.ErrInvalidReading, len(results), len(s.nodeIDs))
	}

	var reading domain.Reading
	ts := time.Time{}
	values := make(map[domain.Metric]float64, len(domain.Metrics))
	for i, m := range domain.Metrics {
		dv := results[i]
		if dv.Status != ua.StatusOK {
			return domain.Reading{}, fmt.Errorf("%w: node %s for %s: %s",
				domain.ErrInvalidReading, s.cfg.Nodes[string(m)], m, dv.Status)
		}
		fv, ok := variantToFloat(dv.Value)
		if !ok {
			return domain.Reading{}, fmt.Errorf("%w: node %s for %s: unsupported value type",
				domain.ErrInvalidReading, s.cfg.Nodes[string(m)], m)
		}
		values[m] = fv
		if dv.ServerTimestamp.After(ts) {
			ts = dv.ServerTimestamp
		}
		if dv.SourceTimestamp.After(ts) {
			ts = dv.SourceTimestamp
		}
	}
	if ts.IsZero() {
		ts = time.Now()
	}

	reading.Timestamp = ts
	reading.Voltage = values[domain.MetricVoltage]
	reading.Current = values[domain.MetricCurrent]
	reading.Temperature = values[domain.MetricTemperature]
	reading.CapacitorCharge = values[domain.MetricCapacitorCharge]
	if err := reading.Valid(); err != nil {
		return domain.Reading{}, err
	}
	return reading, nil
}

// clampForward enforces the source contract that timestamps never decrease,
// even when the server's clock steps backwards between reads.
func (s *Source) clampForward(r domain.Reading) domain.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !r.Timestamp.After(s.last) {
		r.Timestamp = s.last.Add(time.Millisecond)
	}
	s.last = r.Timestamp
	return r
}

func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Close(ctx)
}

func variantToFloat(v *ua.Variant) (float64, bool) {
	if v == nil {
		return 0, false
	}

	switch val := v.Value().(type) {
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case int8:
		return float64(val), true
	case uint8:
		return float64(val), true
	case int16:
		return float64(val), true
	case uint16:
		return float64(val), true
	case int32:
		return float64(val), true
	case uint32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}

func normalizeSecurityMode(mode string) string {
	switch strings.ToLower(mode) {
	case "sign":
		return "Sign"
	case "signandencrypt", "signencrypt", "sign_and_encrypt", "sign+encrypt":
		return "SignAndEncrypt"
	default:
		return "None"
	}
}

func normalizeSecurityPolicy(policy string) string {
	if policy == "" {
		return "None"
	}
	return policy
}

var _ ports.SensorSource = (*Source)(nil)
