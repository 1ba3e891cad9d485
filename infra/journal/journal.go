// Package journal appends every request event to a rotating JSONL file.
package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kilianp07/roadside/core/events"
	"github.com/kilianp07/roadside/infra/logger"
	"github.com/kilianp07/roadside/internal/eventbus"
)

// Config mirrors the lumberjack rotation options.
type Config struct {
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// Record is one journal line.
type Record struct {
	Time      time.Time       `json:"time"`
	Kind      string          `json:"kind"`
	RequestID string          `json:"request_id"`
	Payload   json.RawMessage `json:"payload"`
}

// Query filters records. Zero fields match everything.
type Query struct {
	RequestID string
	Kind      string
	Start     time.Time
	End       time.Time
}

func (q Query) match(r Record) bool {
	if q.RequestID != "" && r.RequestID != q.RequestID {
		return false
	}
	if q.Kind != "" && r.Kind != q.Kind {
		return false
	}
	if !q.Start.IsZero() && r.Time.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Time.After(q.End) {
		return false
	}
	return true
}

// Journal writes records through a lumberjack logger.
type Journal struct {
	mu   sync.Mutex
	out  *lumberjack.Logger
	path string
	now  func() time.Time
	log  logger.Logger
}

// New creates the journal directory if needed. The file is opened on the
// first append.
func New(cfg Config) (*Journal, error) {
	if cfg.Path == "" {
		return nil, errors.New("journal path is required")
	}
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 50
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &Journal{
		out: &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		},
		path: cfg.Path,
		now:  time.Now,
		log:  logger.New("journal"),
	}, nil
}

// Append serialises ev with its kind and subject.
func (j *Journal) Append(ev events.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	rec := Record{Time: j.now().UTC(), Kind: ev.Kind(), RequestID: ev.Subject(), Payload: payload}
	j.mu.Lock()
	defer j.mu.Unlock()
	return json.NewEncoder(j.out).Encode(rec)
}

// Query reads the active file and its rotated backups, oldest first.
func (j *Journal) Query(ctx context.Context, q Query) ([]Record, error) {
	files, err := filepath.Glob(j.backupPattern())
	if err != nil {
		return nil, err
	}
	files = append(files, j.path)
	var res []Record
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		recs, err := readFile(f, q)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		res = append(res, recs...)
	}
	sort.SliceStable(res, func(a, b int) bool { return res[a].Time.Before(res[b].Time) })
	return res, nil
}

// backupPattern matches lumberjack's "<name>-<timestamp><ext>" backups.
func (j *Journal) backupPattern() string {
	ext := filepath.Ext(j.path)
	return j.path[:len(j.path)-len(ext)] + "-*" + ext
}

func readFile(path string, q Query) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	var out []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		var r Record
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			continue
		}
		if q.match(r) {
			out = append(out, r)
		}
	}
	return out, scanner.Err()
}

// Start appends every event published on bus until ctx is done or the bus
// closes. The returned channel is closed when the subscriber exits.
func (j *Journal) Start(ctx context.Context, bus eventbus.EventBus) <-chan struct{} {
	done := make(chan struct{})
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := j.Append(ev); err != nil {
					j.log.Errorf("journal %s: %v", ev.Kind(), err)
				}
			}
		}
	}()
	return done
}

// Close closes the underlying file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.out.Close()
}
