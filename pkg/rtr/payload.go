package rtr

import (
	"bytes"
	"errors"

	"github.com/google/uuid"
)

const (
	// GzipCompressionType helps identify which decompression to use.
	GzipCompressionType = "gzip"

	// ZstdCompressionType helps identify which decompression to use.
	ZstdCompressionType = "zstd"

	// AesSymmetricType helps identify which decryption to use.
	AesSymmetricType = "aes"
)

// WrappedBody is the plaintext wrapper some publishers put around message
// data, with indications of how the inner data was modified.
type WrappedBody struct {
	LetterID       uuid.UUID   `json:"LetterID"`
	Body           *ModdedBody `json:"Body"`
	LetterMetadata string      `json:"LetterMetadata"`
}

// ModdedBody is a payload with modifications and indicators of what was
// modified.
type ModdedBody struct {
	Encrypted   bool   `json:"Encrypted"`
	EType       string `json:"EncryptionType,omitempty"`
	Compressed  bool   `json:"Compressed"`
	CType       string `json:"CompressionType,omitempty"`
	UTCDateTime string `json:"UTCDateTime"`
	Data        []byte `json:"Data"`
}

// ReadWrappedBodyFromJSONBytes simply reads the bytes as a WrappedBody.
func ReadWrappedBodyFromJSONBytes(data []byte) (*WrappedBody, error) {

	body := &WrappedBody{}
	err := json.Unmarshal(data, body)
	if err != nil {
		return nil, err
	}

	return body, nil
}

// ReadPayload decrypts and decompresses a wrapped payload in place, keyed by
// the ModdedBody indicators. Encryption is undone before compression since
// that is the order publishers apply them in reverse.
func ReadPayload(buffer *bytes.Buffer, body *ModdedBody, compression *CompressionConfig, encryption *EncryptionConfig) error {

	if body.Encrypted {
		if encryption == nil || !encryption.Enabled || len(encryption.Hashkey) == 0 {
			return errors.New("payload is encrypted but no decryption hashkey is configured")
		}

		if err := handleDecryption(encryption, buffer); err != nil {
			return err
		}
	}

	if body.Compressed {
		if err := handleDecompression(body.CType, buffer); err != nil {
			return err
		}
	}

	return nil
}

func handleDecompression(compressionType string, buffer *bytes.Buffer) error {

	switch compressionType {
	case ZstdCompressionType:
		return DecompressWithZstd(buffer)
	case GzipCompressionType:
		fallthrough
	default:
		return DecompressWithGzip(buffer)
	}
}

func handleDecryption(encryption *EncryptionConfig, buffer *bytes.Buffer) error {

	switch encryption.Type {
	case AesSymmetricType:
		fallthrough
	default:
		data, err := DecryptWithAes(buffer.Bytes(), encryption.Hashkey, 12)
		if err != nil {
			return err
		}

		*buffer = *bytes.NewBuffer(data)

		return nil
	}
}
