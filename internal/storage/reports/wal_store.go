// Package reports journals finished account reports in a write-ahead log.
package reports

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/vadiminshakov/orderband/internal/domain"
)

const (
	DefaultDir   = "./wal/reports"
	segmentLimit = 100
	maxSegments  = 10

	reportKeyPrefix = "report_"
)

// WALStore persists account reports in a WAL.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore initializes a WAL-backed report journal.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create report WAL dir")
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "report_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init report WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Save appends the report and returns its index.
func (s *WALStore) Save(report domain.AccountReport) (uint64, error) {
	if s == nil || s.wal == nil {
		return 0, errors.New("report store is not initialized")
	}
	if report.RunID == "" {
		return 0, fmt.Errorf("report run id is required")
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return 0, errors.Wrap(err, "marshal account report")
	}

	key := fmt.Sprintf("%s%s_%s", reportKeyPrefix, report.AccountID, report.RunID)

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	if err := s.wal.Write(nextIndex, key, payload); err != nil {
		return 0, errors.Wrap(err, "write account report")
	}
	return nextIndex, nil
}

// ReportsAfter returns all reports written after the provided WAL index.
// A non-empty accountID keeps only that account's reports.
func (s *WALStore) ReportsAfter(index uint64, accountID string) ([]domain.AccountReportRecord, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("report store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]domain.AccountReportRecord, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil {
			continue
		}
		if !strings.HasPrefix(key, reportKeyPrefix) {
			continue
		}

		var report domain.AccountReport
		if err := json.Unmarshal(payload, &report); err != nil {
			return nil, errors.Wrap(err, "decode account report")
		}
		if accountID != "" && report.AccountID != accountID {
			continue
		}
		records = append(records, domain.AccountReportRecord{Index: idx, Report: report})
	}

	return records, nil
}

// Latest returns the most recent report of the account.
func (s *WALStore) Latest(accountID string) (domain.AccountReportRecord, bool, error) {
	records, err := s.ReportsAfter(0, accountID)
	if err != nil {
		return domain.AccountReportRecord{}, false, err
	}
	if len(records) == 0 {
		return domain.AccountReportRecord{}, false, nil
	}
	return records[len(records)-1], true, nil
}

// CurrentIndex returns the latest WAL index stored.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("report store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
