package rtr

import (
	"bytes"
	"io"
	"sync"
)

// MessageSink accepts one DeliveredMessage at a time. A sink error is fatal
// to the run and propagates out of Retriever.Run.
type MessageSink interface {
	Write(msg *DeliveredMessage) error
}

// messageRecord is the JSON shape written per message by JSONLinesSink.
type messageRecord struct {
	Exchange    string                 `json:"Exchange"`
	RoutingKey  string                 `json:"RoutingKey"`
	QueueName   string                 `json:"QueueName"`
	DeliveryTag uint64                 `json:"DeliveryTag"`
	Redelivered bool                   `json:"Redelivered"`
	ContentType string                 `json:"ContentType,omitempty"`
	MessageID   string                 `json:"MessageID,omitempty"`
	AppID       string                 `json:"AppID,omitempty"`
	PublishDate string                 `json:"PublishDate,omitempty"`
	Headers     map[string]interface{} `json:"Headers,omitempty"`
	Body        []byte                 `json:"Body"`
}

// JSONLinesSink writes one JSON object per message to the underlying writer.
type JSONLinesSink struct {
	writer io.Writer
	lock   sync.Mutex
}

// NewJSONLinesSink creates a JSONLinesSink over any writer.
func NewJSONLinesSink(writer io.Writer) *JSONLinesSink {
	return &JSONLinesSink{writer: writer}
}

// Write encodes the message as a single JSON line.
func (sink *JSONLinesSink) Write(msg *DeliveredMessage) error {
	sink.lock.Lock()
	defer sink.lock.Unlock()

	record := &messageRecord{
		Exchange:    msg.Exchange,
		RoutingKey:  msg.RoutingKey,
		QueueName:   msg.QueueName,
		DeliveryTag: msg.DeliveryTag,
		Redelivered: msg.Redelivered,
		ContentType: msg.ContentType,
		MessageID:   msg.MessageID,
		AppID:       msg.AppID,
		PublishDate: msg.PublishDate,
		Headers:     msg.Headers,
		Body:        msg.Body,
	}

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	data = append(data, '\n')
	_, err = sink.writer.Write(data)
	return err
}

// BodySink writes raw message bodies to the underlying writer, one line per
// message.
type BodySink struct {
	writer io.Writer
	lock   sync.Mutex
}

// NewBodySink creates a BodySink over any writer.
func NewBodySink(writer io.Writer) *BodySink {
	return &BodySink{writer: writer}
}

// Write copies the message body followed by a newline.
func (sink *BodySink) Write(msg *DeliveredMessage) error {
	sink.lock.Lock()
	defer sink.lock.Unlock()

	if _, err := sink.writer.Write(msg.Body); err != nil {
		return err
	}

	_, err := sink.writer.Write([]byte{'\n'})
	return err
}

// DecodingSink unwraps WrappedBody payloads - decrypting and decompressing
// per the decode configs - before handing the message to the inner sink.
// Bodies that are not wrapped payloads pass through untouched.
type DecodingSink struct {
	inner       MessageSink
	compression *CompressionConfig
	encryption  *EncryptionConfig
}

// NewDecodingSinkFromConfig wraps the inner sink per the seasoning's decode
// sections. When encryption is enabled and a passphrase and salt are supplied,
// the decryption Hashkey is derived with Argon2id using the config's
// parameters. Returns the inner sink untouched when nothing is enabled.
func NewDecodingSinkFromConfig(inner MessageSink, seasoning *RetrieverSeasoning, passphrase, salt string) MessageSink {

	compression := seasoning.CompressionConfig
	encryption := seasoning.EncryptionConfig

	decode := compression != nil && compression.Enabled
	if encryption != nil && encryption.Enabled {
		decode = true

		// Create a HashKey for Decryption
		if len(encryption.Hashkey) == 0 && len(passphrase) > 0 && len(salt) > 0 {
			encryption.Hashkey = GetHashWithArgon(
				passphrase,
				salt,
				encryption.TimeConsideration,
				encryption.MemoryMultiplier,
				encryption.Threads,
				32)
		}
	}

	if !decode {
		return inner
	}

	return NewDecodingSink(inner, compression, encryption)
}

// NewDecodingSink creates a DecodingSink around an inner sink.
func NewDecodingSink(inner MessageSink, compression *CompressionConfig, encryption *EncryptionConfig) *DecodingSink {

	return &DecodingSink{
		inner:       inner,
		compression: compression,
		encryption:  encryption,
	}
}

// Write decodes the body where possible and forwards to the inner sink. The
// original message is never mutated; a decoded copy is forwarded instead.
func (sink *DecodingSink) Write(msg *DeliveredMessage) error {

	wrappedBody, err := ReadWrappedBodyFromJSONBytes(msg.Body)
	if err != nil || wrappedBody.Body == nil {
		return sink.inner.Write(msg)
	}

	buffer := bytes.NewBuffer(wrappedBody.Body.Data)
	if err := ReadPayload(buffer, wrappedBody.Body, sink.compression, sink.encryption); err != nil {
		return err
	}

	decoded := *msg
	decoded.Body = buffer.Bytes()

	return sink.inner.Write(&decoded)
}
