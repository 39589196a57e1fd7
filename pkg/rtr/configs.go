package rtr

import "fmt"

// RetrieverSeasoning represents the configuration values.
type RetrieverSeasoning struct {
	PoolConfig        *PoolConfig        `json:"PoolConfig" yaml:"PoolConfig"`
	RetrievalConfig   *RetrievalConfig   `json:"RetrievalConfig" yaml:"RetrievalConfig"`
	CompressionConfig *CompressionConfig `json:"CompressionConfig" yaml:"CompressionConfig"`
	EncryptionConfig  *EncryptionConfig  `json:"EncryptionConfig" yaml:"EncryptionConfig"`
}

// PoolConfig represents settings for creating/configuring the ConnectionPool.
type PoolConfig struct {
	ApplicationName      string     `json:"ApplicationName" yaml:"ApplicationName"`
	URI                  string     `json:"URI" yaml:"URI"`
	Heartbeat            uint32     `json:"Heartbeat" yaml:"Heartbeat"`
	ConnectionTimeout    uint32     `json:"ConnectionTimeout" yaml:"ConnectionTimeout"`
	SleepOnErrorInterval uint32     `json:"SleepOnErrorInterval" yaml:"SleepOnErrorInterval"` // sleep length on errors
	MaxConnectionCount   uint64     `json:"MaxConnectionCount" yaml:"MaxConnectionCount"`     // number of connections to create in the pool
	TLSConfig            *TLSConfig `json:"TLSConfig" yaml:"TLSConfig"`                       // TLS settings for connection with AMQPS.
}

// TLSConfig represents settings for configuring TLS.
type TLSConfig struct {
	EnableTLS         bool   `json:"EnableTLS" yaml:"EnableTLS"` // Use TLSConfig to create connections with AMQPS uri.
	PEMCertLocation   string `json:"PEMCertLocation" yaml:"PEMCertLocation"`
	LocalCertLocation string `json:"LocalCertLocation" yaml:"LocalCertLocation"`
	CertServerName    string `json:"CertServerName" yaml:"CertServerName"`
}

// RetrievalConfig represents settings for configuring a retrieval run with
// ease. PrefetchCount is a pointer so an absent key is distinguishable from
// an explicit zero - requeue safety resolution depends on it.
type RetrievalConfig struct {
	QueueName         string `json:"QueueName" yaml:"QueueName"`
	ConsumerName      string `json:"ConsumerName" yaml:"ConsumerName"`
	Mode              string `json:"Mode" yaml:"Mode"`       // consume or peek
	AckMode           string `json:"AckMode" yaml:"AckMode"` // accept, reject or requeue
	MessageCountLimit int64  `json:"MessageCountLimit" yaml:"MessageCountLimit"`
	PrefetchCount     *int   `json:"PrefetchCount,omitempty" yaml:"PrefetchCount,omitempty"`
}

// ToOptions converts the config element into validated RetrievalOptions.
func (rc *RetrievalConfig) ToOptions() (RetrievalOptions, error) {

	mode, err := ParseRetrievalMode(rc.Mode)
	if err != nil {
		return RetrievalOptions{}, err
	}

	ackMode, err := ParseAckMode(rc.AckMode)
	if err != nil {
		return RetrievalOptions{}, err
	}

	opts := RetrievalOptions{
		QueueName:         rc.QueueName,
		ConsumerName:      rc.ConsumerName,
		Mode:              mode,
		AckMode:           ackMode,
		MessageCountLimit: rc.MessageCountLimit,
	}

	if rc.PrefetchCount != nil {
		opts.PrefetchCount = *rc.PrefetchCount
		opts.PrefetchSet = true
	}

	return opts, nil
}

// ParseRetrievalMode converts a config string to a RetrievalMode. An empty
// string defaults to consume.
func ParseRetrievalMode(mode string) (RetrievalMode, error) {

	switch mode {
	case "", "consume":
		return ConsumeMode, nil
	case "peek":
		return PeekMode, nil
	default:
		return ConsumeMode, fmt.Errorf("unknown retrieval mode %q", mode)
	}
}

// ParseAckMode converts a config string to an AckOutcome. An empty string
// defaults to accept.
func ParseAckMode(ackMode string) (AckOutcome, error) {

	switch ackMode {
	case "", "accept":
		return AcceptOutcome, nil
	case "reject":
		return RejectOutcome, nil
	case "requeue":
		return RequeueOutcome, nil
	default:
		return AcceptOutcome, fmt.Errorf("unknown ack mode %q", ackMode)
	}
}

// CompressionConfig identifies how wrapped payloads were compressed.
type CompressionConfig struct {
	Enabled bool   `json:"Enabled" yaml:"Enabled"`
	Type    string `json:"Type,omitempty" yaml:"Type,omitempty"`
}

// EncryptionConfig identifies how wrapped payloads were encrypted and how to
// derive the symmetric key.
type EncryptionConfig struct {
	Enabled           bool   `json:"Enabled" yaml:"Enabled"`
	Type              string `json:"Type,omitempty" yaml:"Type,omitempty"`
	Hashkey           []byte `json:"-" yaml:"-"`
	TimeConsideration uint32 `json:"TimeConsideration,omitempty" yaml:"TimeConsideration,omitempty"`
	MemoryMultiplier  uint32 `json:"MemoryMultiplier,omitempty" yaml:"MemoryMultiplier,omitempty"`
	Threads           uint8  `json:"Threads,omitempty" yaml:"Threads,omitempty"`
}
