package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/berrythewa/deskbridge/internal/types"
	"github.com/berrythewa/deskbridge/pkg/compression"
	"github.com/berrythewa/deskbridge/pkg/utils"
)

const (
	journalBucket     = "invocations"
	defaultMaxRecords = 1000 // Oldest records are trimmed past this
	defaultKeepItems  = 10   // Number of records to keep when flushing
)

// JournalInterface defines the methods of the invocation journal
type JournalInterface interface {
	Append(record types.InvocationRecord) error
	History(options HistoryOptions) ([]types.InvocationRecord, error)
	Flush(keep int) (types.FlushResult, error)
	Count() int
	Close() error
}

// HistoryOptions filters journal queries
type HistoryOptions struct {
	Limit   int       // 0 means no limit
	Since   time.Time // Inclusive
	Before  time.Time // Exclusive
	Command string    // Empty matches every command
	Reverse bool      // Newest first
}

// JournalConfig holds configuration for Journal initialization
type JournalConfig struct {
	DBPath     string
	MaxRecords int
	Logger     *zap.Logger
}

// Journal persists handled invocations in BoltDB. Keys are the big-endian
// timestamp followed by the request id, so cursor order is chronological.
type Journal struct {
	db         *bbolt.DB
	maxRecords int
	count      atomic.Int64
	logger     *zap.Logger

	// writeMu serializes writers so count matches the bucket inside a transaction
	writeMu sync.Mutex
}

// OpenJournal opens or creates the journal database
func OpenJournal(config JournalConfig) (*Journal, error) {
	maxRecords := config.MaxRecords
	if maxRecords <= 0 {
		maxRecords = defaultMaxRecords
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := bbolt.Open(config.DBPath, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	// Create bucket if it doesn't exist
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(journalBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	j := &Journal{
		db:         db,
		maxRecords: maxRecords,
		logger:     logger,
	}

	var count int64
	err = db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(journalBucket)).ForEach(func(k, v []byte) error {
			count++
			return nil
		})
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to count journal records: %w", err)
	}
	j.count.Store(count)

	logger.Debug("Journal initialized",
		zap.String("db_path", config.DBPath),
		zap.Int("max_records", maxRecords),
		zap.Int64("records", count))

	return j, nil
}

// Append stores one record, trimming the oldest ones past the configured maximum
func (j *Journal) Append(record types.InvocationRecord) error {
	if record.At.IsZero() {
		record.At = time.Now()
	}
	if len(record.Args) > 0 && !record.Compressed {
		record.ArgsDigest = utils.HashContent(record.Args)
		packed, compressed, err := compression.Compress(record.Args)
		if err != nil {
			return fmt.Errorf("failed to compress arguments: %w", err)
		}
		if compressed {
			// Raw gzip is not valid JSON, so it travels as a JSON string (base64)
			encoded, err := json.Marshal(packed)
			if err != nil {
				return fmt.Errorf("failed to encode compressed arguments: %w", err)
			}
			record.Args = encoded
			record.Compressed = true
		}
	}

	encoded, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	j.writeMu.Lock()
	defer j.writeMu.Unlock()

	var delta int64
	err = j.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(journalBucket))
		key := recordKey(record)
		if b.Get(key) == nil {
			delta = 1
		}
		if err := b.Put(key, encoded); err != nil {
			return fmt.Errorf("failed to store record: %w", err)
		}

		if over := j.count.Load() + delta - int64(j.maxRecords); over > 0 {
			removed, err := deleteOldest(b, int(over))
			if err != nil {
				return err
			}
			delta -= int64(removed)
			j.logger.Debug("Trimmed journal", zap.Int("removed", removed))
		}
		return nil
	})
	if err != nil {
		return err
	}
	j.count.Add(delta)
	return nil
}

// History returns records matching options, oldest first unless Reverse is set
func (j *Journal) History(options HistoryOptions) ([]types.InvocationRecord, error) {
	records := []types.InvocationRecord{}

	err := j.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(journalBucket)).Cursor()

		first, next := c.First, c.Next
		if options.Reverse {
			first, next = c.Last, c.Prev
		}

		for k, v := first(); k != nil; k, v = next() {
			if options.Limit > 0 && len(records) >= options.Limit {
				break
			}

			var record types.InvocationRecord
			if err := json.Unmarshal(v, &record); err != nil {
				j.logger.Warn("Failed to unmarshal record", zap.Error(err), zap.Binary("key", k))
				continue // skip invalid entries
			}
			if !options.Since.IsZero() && record.At.Before(options.Since) {
				continue
			}
			if !options.Before.IsZero() && !record.At.Before(options.Before) {
				continue
			}
			if options.Command != "" && record.Command != options.Command {
				continue
			}
			records = append(records, j.inflate(record))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	return records, nil
}

// Flush removes all but the newest keep records
func (j *Journal) Flush(keep int) (types.FlushResult, error) {
	if keep < 0 {
		keep = defaultKeepItems
	}

	j.writeMu.Lock()
	defer j.writeMu.Unlock()

	var result types.FlushResult
	err := j.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(journalBucket))
		total := int(j.count.Load())
		if total <= keep {
			result.Kept = total
			return nil
		}
		removed, err := deleteOldest(b, total-keep)
		if err != nil {
			return err
		}
		result = types.FlushResult{Removed: removed, Kept: total - removed}
		return nil
	})
	if err != nil {
		return types.FlushResult{}, fmt.Errorf("failed to flush journal: %w", err)
	}
	j.count.Add(-int64(result.Removed))

	j.logger.Info("Journal flushed",
		zap.Int("removed", result.Removed),
		zap.Int("kept", result.Kept))
	return result, nil
}

// Count returns the number of stored records
func (j *Journal) Count() int {
	return int(j.count.Load())
}

// Close closes the underlying database
func (j *Journal) Close() error {
	return j.db.Close()
}

// inflate restores compressed arguments for callers
func (j *Journal) inflate(record types.InvocationRecord) types.InvocationRecord {
	if !record.Compressed {
		return record
	}
	var packed []byte
	if err := json.Unmarshal(record.Args, &packed); err != nil {
		j.logger.Warn("Failed to decode compressed arguments", zap.String("id", record.ID), zap.Error(err))
		return record
	}
	args, err := compression.Decompress(packed)
	if err != nil {
		j.logger.Warn("Failed to decompress arguments", zap.String("id", record.ID), zap.Error(err))
		return record
	}
	record.Args = args
	record.Compressed = false
	return record
}

func recordKey(record types.InvocationRecord) []byte {
	key := make([]byte, 8, 8+len(record.ID))
	binary.BigEndian.PutUint64(key, uint64(record.At.UnixNano()))
	return append(key, record.ID...)
}

// deleteOldest removes up to n records from the start of the bucket
func deleteOldest(b *bbolt.Bucket, n int) (int, error) {
	c := b.Cursor()
	var keys [][]byte
	for k, _ := c.First(); k != nil && len(keys) < n; k, _ = c.Next() {
		keys = append(keys, append([]byte(nil), k...))
	}
	for _, k := range keys {
		if err := b.Delete(k); err != nil {
			return 0, fmt.Errorf("failed to delete record: %w", err)
		}
	}
	return len(keys), nil
}
