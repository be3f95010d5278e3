// Package persist reads and writes the record store to its primary data file
// and mirrored backup file.
//
// Primary lines are space separated:
//
//	<name> <age> <email> <phone> <createdAtEpoch> <savedAtEpoch>
//
// Backup lines are pipe separated and carry no modification time:
//
//	<name>|<age>|<email>|<phone>|<createdAtEpoch>
//
// Every Save rewrites the backup first, then the primary. Neither write is
// atomic.
package persist

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/zarlcorp/core/pkg/zfilesystem"
	"github.com/zarlcorp/zrecord/internal/record"
	"github.com/zarlcorp/zrecord/internal/store"
)

// default file names, relative to the codec filesystem root
const (
	DefaultPrimary = "enterprise_database.dat"
	DefaultBackup  = "enterprise_backup.dat"
)

const (
	primaryFields = 6
	filePerm      = 0o644
)

// ErrNoDataFile is returned by Load when the primary file does not exist yet.
// The returned store is empty and usable.
var ErrNoDataFile = errors.New("data file not found")

var (
	// ErrBackup marks a failed write of the backup file.
	ErrBackup = errors.New("backup write failed")
	// ErrPrimary marks a failed write of the primary file.
	ErrPrimary = errors.New("primary write failed")
)

// Option configures a Codec.
type Option func(*Codec)

// WithPrimary sets the primary file name.
func WithPrimary(name string) Option {
	return func(c *Codec) { c.primary = name }
}

// WithBackup sets the backup file name.
func WithBackup(name string) Option {
	return func(c *Codec) { c.backup = name }
}

// WithClock overrides the time source for the shared save timestamp.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.clock = now }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Codec) { c.log = l }
}

// Codec persists a store to a filesystem.
type Codec struct {
	fs      zfilesystem.ReadWriteFileFS
	primary string
	backup  string
	clock   func() time.Time
	log     *slog.Logger
}

// New creates a codec writing to fsys.
func New(fsys zfilesystem.ReadWriteFileFS, opts ...Option) *Codec {
	c := &Codec{
		fs:      fsys,
		primary: DefaultPrimary,
		backup:  DefaultBackup,
		clock:   time.Now,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// PrimaryName returns the primary file name.
func (c *Codec) PrimaryName() string { return c.primary }

// BackupName returns the backup file name.
func (c *Codec) BackupName() string { return c.backup }

// Load reads the primary file into a new store built with opts. Malformed
// lines are skipped. It returns the store and the number of records loaded.
// A missing primary file yields an empty store and ErrNoDataFile.
func (c *Codec) Load(opts ...store.Option) (*store.Store, int, error) {
	s := store.New(opts...)

	data, err := c.fs.ReadFile(c.primary)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, 0, ErrNoDataFile
		}
		return s, 0, fmt.Errorf("load: read %s: %w", c.primary, err)
	}

	loaded, skipped := DecodePrimary(data, s)
	c.log.Debug("load", "file", c.primary, "records", loaded, "skipped", skipped)
	return s, loaded, nil
}

// Save backs up the store and then rewrites the primary file, stamping every
// line with the same save time. A failed backup does not stop the primary
// write; all failures are returned joined.
func (c *Codec) Save(s *store.Store) error {
	entries := s.List()
	now := c.clock().Truncate(time.Second)

	backupErr := c.writeBackup(entries)
	primaryErr := c.writePrimary(entries, now)
	return errors.Join(backupErr, primaryErr)
}

// Backup writes only the backup file.
func (c *Codec) Backup(s *store.Store) error {
	return c.writeBackup(s.List())
}

func (c *Codec) writeBackup(entries []store.Entry) error {
	if err := c.fs.WriteFile(c.backup, EncodeBackup(entries), filePerm); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrBackup, c.backup, err)
	}
	return nil
}

func (c *Codec) writePrimary(entries []store.Entry, now time.Time) error {
	if err := c.fs.WriteFile(c.primary, EncodePrimary(entries, now), filePerm); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrPrimary, c.primary, err)
	}
	return nil
}

// EncodePrimary renders entries in primary format. savedAt is written as the
// last column of every line regardless of each record's own modification time.
func EncodePrimary(entries []store.Entry, savedAt time.Time) []byte {
	var buf bytes.Buffer
	saved := strconv.FormatInt(record.Epoch(savedAt), 10)
	for _, e := range entries {
		buf.WriteString(e.Name)
		buf.WriteByte(' ')
		buf.WriteString(strconv.Itoa(e.Age))
		buf.WriteByte(' ')
		buf.WriteString(e.Email)
		buf.WriteByte(' ')
		buf.WriteString(e.Phone)
		buf.WriteByte(' ')
		buf.WriteString(strconv.FormatInt(record.Epoch(e.CreatedAt), 10))
		buf.WriteByte(' ')
		buf.WriteString(saved)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// EncodeBackup renders entries in backup format.
func EncodeBackup(entries []store.Entry) []byte {
	var buf bytes.Buffer
	for _, e := range entries {
		fmt.Fprintf(&buf, "%s|%d|%s|%s|%d\n",
			e.Name, e.Age, e.Email, e.Phone, record.Epoch(e.CreatedAt))
	}
	return buf.Bytes()
}

// DecodePrimary parses primary-format data into s. Lines that do not hold
// exactly six fields, or whose numeric fields do not parse, are counted as
// skipped.
func DecodePrimary(data []byte, s *store.Store) (loaded, skipped int) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		name, r, ok := parsePrimaryLine(line)
		if !ok {
			skipped++
			continue
		}
		s.Upsert(name, r)
		loaded++
	}
	return loaded, skipped
}

func parsePrimaryLine(line string) (string, record.Record, bool) {
	f := strings.Fields(line)
	if len(f) != primaryFields {
		return "", record.Record{}, false
	}

	age, err := strconv.Atoi(f[1])
	if err != nil {
		return "", record.Record{}, false
	}
	created, err := strconv.ParseInt(f[4], 10, 64)
	if err != nil {
		return "", record.Record{}, false
	}
	modified, err := strconv.ParseInt(f[5], 10, 64)
	if err != nil {
		return "", record.Record{}, false
	}

	return f[0], record.Record{
		Age:            age,
		Email:          f[2],
		Phone:          f[3],
		CreatedAt:      record.FromEpoch(created),
		LastModifiedAt: record.FromEpoch(modified),
	}, true
}
