package oplog

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/wk-dev/wk/internal/types"
)

// FileName is the append-only log's file name inside a store directory.
const FileName = "oplog.log"

// maxRecordLen guards against a corrupt length prefix turning a truncated
// read into an out-of-memory allocation.
const maxRecordLen = 64 << 20 // 64 MiB

// Log is an append-only sequence of framed operations colocated with the
// Storage Engine: each record is `<u32 length><payload>`,
// immutable once written.
type Log struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

// Open opens (creating if absent) the log file at dir/FileName for
// appending and reading.
func Open(dir string) (*Log, error) {
	path := filepath.Join(dir, FileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open oplog %s: %w", path, err)
	}
	return &Log{path: path, f: f}, nil
}

// Path returns the underlying file path, used by compaction to rewrite it.
func (l *Log) Path() string { return l.path }

// Close closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}

// Append writes one operation frame and fsyncs, so a crash after Append
// returns never loses the record. Entries are immutable once written.
func (l *Log) Append(op types.Operation) error {
	payload, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("marshal operation %s: %w", op.OpID, err)
	}
	if len(payload) > maxRecordLen {
		return fmt.Errorf("operation %s exceeds max record size", op.OpID)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := l.f.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("write operation length: %w", err)
	}
	if _, err := l.f.Write(payload); err != nil {
		return fmt.Errorf("write operation payload: %w", err)
	}
	return l.f.Sync()
}

// ReadAll replays every record currently in the log, in file order (which
// is append order, not necessarily HLC order across sites — callers that
// need HLC order should sort the result before folding).
func (l *Log) ReadAll() ([]types.Operation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readAllLocked()
}

func (l *Log) readAllLocked() ([]types.Operation, error) {
	if _, err := l.f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek oplog: %w", err)
	}
	defer l.f.Seek(0, io.SeekEnd)

	r := bufio.NewReader(l.f)
	var ops []types.Operation
	for {
		op, err := readOne(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return ops, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func readOne(r *bufio.Reader) (types.Operation, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return types.Operation{}, fmt.Errorf("oplog: truncated length prefix: %w", io.EOF)
		}
		return types.Operation{}, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxRecordLen {
		return types.Operation{}, fmt.Errorf("oplog: record length %d exceeds max", n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return types.Operation{}, fmt.Errorf("oplog: truncated record: %w", err)
	}
	var op types.Operation
	if err := json.Unmarshal(payload, &op); err != nil {
		return types.Operation{}, fmt.Errorf("oplog: decode record: %w", err)
	}
	return op, nil
}
