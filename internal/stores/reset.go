package stores

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const resetRecordVersionV1 = 1

var (
	ErrResetNotFound    = errors.New("reset record not found")
	ErrResetExpired     = errors.New("reset record expired")
	ErrResetConsumed    = errors.New("reset record already consumed")
	ErrResetUnavailable = errors.New("reset store unavailable")
)

// ResetRecord is the persisted state of one password-reset token. The
// plaintext secret never reaches the store; only its hash does.
type ResetRecord struct {
	AccountID  int64
	SecretHash [32]byte
	ExpiresAt  int64
	Consumed   bool
}

// ResetStore keeps reset records in Redis with at most one live record
// per account. Consumption is a WATCH/MULTI compare-and-swap: the
// consumed flag goes false to true exactly once, and the tombstone is
// retained so later redeemers observe "already consumed" rather than
// "not found".
type ResetStore struct {
	redis     redis.UniversalClient
	prefix    string
	retention time.Duration
}

// NewResetStore builds a store under the given key prefix. retention is
// how long a consumed tombstone outlives its consumption.
func NewResetStore(redisClient redis.UniversalClient, prefix string, retention time.Duration) *ResetStore {
	if prefix == "" {
		prefix = "agr"
	}
	if retention <= 0 {
		retention = time.Hour
	}
	return &ResetStore{
		redis:     redisClient,
		prefix:    prefix,
		retention: retention,
	}
}

func (s *ResetStore) recordKey(resetID string) string {
	return s.prefix + ":t:" + resetID
}

func (s *ResetStore) accountKey(accountID int64) string {
	return fmt.Sprintf("%s:a:%d", s.prefix, accountID)
}

// Put stores the record and supersedes any prior live token for the same
// account: the prior record is deleted so it redeems as not-found.
func (s *ResetStore) Put(ctx context.Context, resetID string, record *ResetRecord, ttl time.Duration) error {
	encoded, err := encodeResetRecord(record)
	if err != nil {
		return err
	}

	prior, err := s.redis.GetSet(ctx, s.accountKey(record.AccountID), resetID).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrResetUnavailable, err)
	}
	if prior != "" && prior != resetID {
		if err := s.redis.Del(ctx, s.recordKey(prior)).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrResetUnavailable, err)
		}
	}

	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, s.recordKey(resetID), encoded, ttl+s.retention)
	pipe.Expire(ctx, s.accountKey(record.AccountID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrResetUnavailable, err)
	}
	return nil
}

// Consume atomically checks and consumes the record. Exactly one of N
// concurrent calls with the same valid token returns the record; the
// rest return ErrResetConsumed. Expiry is judged lazily against now, and
// a secret-hash mismatch is indistinguishable from a missing record.
func (s *ResetStore) Consume(ctx context.Context, resetID string, providedHash [32]byte, now time.Time) (*ResetRecord, error) {
	const maxRetries = 4
	key := s.recordKey(resetID)

	for attempt := 0; attempt < maxRetries; attempt++ {
		var consumed *ResetRecord

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeResetRecord(data)
			if err != nil {
				return err
			}

			if record.Consumed {
				return ErrResetConsumed
			}
			if now.Unix() > record.ExpiresAt {
				return ErrResetExpired
			}
			if subtle.ConstantTimeCompare(record.SecretHash[:], providedHash[:]) != 1 {
				return ErrResetNotFound
			}

			record.Consumed = true
			tombstone, err := encodeResetRecord(record)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, tombstone, s.retention)
				pipe.Del(ctx, s.accountKey(record.AccountID))
				return nil
			})
			if err != nil {
				return err
			}

			consumed = record
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			// Lost the race; re-read, most likely to land on ErrResetConsumed.
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil):
				return nil, ErrResetNotFound
			case errors.Is(err, ErrResetNotFound),
				errors.Is(err, ErrResetExpired),
				errors.Is(err, ErrResetConsumed):
				return nil, err
			default:
				return nil, fmt.Errorf("%w: %v", ErrResetUnavailable, err)
			}
		}
		return consumed, nil
	}

	return nil, ErrResetConsumed
}

func encodeResetRecord(record *ResetRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(resetRecordVersionV1)
	if record.Consumed {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.AccountID); err != nil {
		return nil, err
	}
	buf.Write(record.SecretHash[:])

	return buf.Bytes(), nil
}

func decodeResetRecord(data []byte) (*ResetRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != resetRecordVersionV1 {
		return nil, errors.New("unknown reset record version")
	}

	consumed, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	record := &ResetRecord{Consumed: consumed == 1}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.AccountID); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(reader, record.SecretHash[:]); err != nil {
		return nil, err
	}

	return record, nil
}
