// Package resultfile persists mission result snapshots as zstd-compressed
// JSON files, one file per terminal run.
package resultfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	missiondomain "github.com/tacticalworks/missiond/internal/mission/domain"
	"github.com/tacticalworks/missiond/internal/storage"
)

// Store writes result snapshots under a base directory. File names embed
// the mission ID and a UTC timestamp for uniqueness.
type Store struct {
	dir   string
	clock func() time.Time
}

// NewStore creates a result archive rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir, clock: time.Now}
}

// SaveResult writes one snapshot file. The directory is created on demand.
func (s *Store) SaveResult(ctx context.Context, result missiondomain.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.dir == "" {
		return fmt.Errorf("result directory is not configured")
	}
	if result.MissionID == "" {
		return fmt.Errorf("mission id is required")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create result dir: %w", err)
	}

	clock := s.clock
	if clock == nil {
		clock = time.Now
	}
	name := fmt.Sprintf("mission_%s_%s.json.zst", result.MissionID, clock().UTC().Format("20060102_150405.000000000"))
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create result file: %w", err)
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}
	if err := json.NewEncoder(enc).Encode(result); err != nil {
		_ = enc.Close()
		return fmt.Errorf("encode result: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("flush result: %w", err)
	}
	return nil
}

// ReadResult decodes one snapshot file written by SaveResult.
func ReadResult(path string) (missiondomain.Result, error) {
	var result missiondomain.Result
	f, err := os.Open(path)
	if err != nil {
		return result, fmt.Errorf("open result file: %w", err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return result, fmt.Errorf("create zstd reader: %w", err)
	}
	defer dec.Close()

	if err := json.NewDecoder(dec).Decode(&result); err != nil {
		return result, fmt.Errorf("decode result: %w", err)
	}
	return result, nil
}

var _ storage.ResultStore = (*Store)(nil)
