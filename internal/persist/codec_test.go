package persist

import (
	"bytes"
	"errors"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/zarlcorp/core/pkg/zfilesystem"
	"github.com/zarlcorp/zrecord/internal/record"
	"github.com/zarlcorp/zrecord/internal/store"
)

var errDiskFull = errors.New("disk full")

// failingFS fails writes to one file and delegates everything else.
type failingFS struct {
	zfilesystem.ReadWriteFileFS
	failOn string
}

func (f failingFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	if name == f.failOn {
		return errDiskFull
	}
	return f.ReadWriteFileFS.WriteFile(name, data, perm)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sampleStore() *store.Store {
	s := store.New()
	s.Upsert("alice", record.Record{
		Age:            30,
		Email:          "alice@x.com",
		Phone:          "5551234567",
		CreatedAt:      time.Unix(1700000000, 0),
		LastModifiedAt: time.Unix(1700000100, 0),
	})
	s.Upsert("bob", record.Record{
		Age:            45,
		Email:          "bob@y.org",
		Phone:          "123",
		CreatedAt:      time.Unix(1700000200, 0),
		LastModifiedAt: time.Unix(1700000200, 0),
	})
	return s
}

func TestLoadMissingFile(t *testing.T) {
	c := New(zfilesystem.NewMemFS())

	s, n, err := c.Load()
	if !errors.Is(err, ErrNoDataFile) {
		t.Fatalf("load: got %v, want ErrNoDataFile", err)
	}
	if n != 0 || s == nil || s.Len() != 0 {
		t.Fatalf("expected empty store, got n=%d", n)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	fsys := zfilesystem.NewMemFS()
	saveAt := time.Unix(1800000000, 0)
	c := New(fsys, WithClock(fixedClock(saveAt)))

	orig := sampleStore()
	if err := c.Save(orig); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, n, err := c.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if n != 2 {
		t.Fatalf("loaded %d records, want 2", n)
	}

	for _, want := range orig.List() {
		got, ok := loaded.Get(want.Name)
		if !ok {
			t.Fatalf("%s missing after load", want.Name)
		}
		if got.Age != want.Age || got.Email != want.Email || got.Phone != want.Phone {
			t.Errorf("%s fields: got %+v, want %+v", want.Name, got, want.Record)
		}
		if got.CreatedAt.Unix() != want.CreatedAt.Unix() {
			t.Errorf("%s created: got %d, want %d", want.Name, got.CreatedAt.Unix(), want.CreatedAt.Unix())
		}
		// the last column carries the save instant, not the edit instant
		if got.LastModifiedAt.Unix() != saveAt.Unix() {
			t.Errorf("%s saved-at: got %d, want %d", want.Name, got.LastModifiedAt.Unix(), saveAt.Unix())
		}
	}
}

func TestSaveWritesSharedTimestamp(t *testing.T) {
	fsys := zfilesystem.NewMemFS()
	saveAt := time.Unix(1800000123, 0)
	c := New(fsys, WithClock(fixedClock(saveAt)))

	if err := c.Save(sampleStore()); err != nil {
		t.Fatalf("save: %v", err)
	}

	data, err := fsys.ReadFile(DefaultPrimary)
	if err != nil {
		t.Fatalf("read primary: %v", err)
	}

	want := "alice 30 alice@x.com 5551234567 1700000000 1800000123\n" +
		"bob 45 bob@y.org 123 1700000200 1800000123\n"
	if string(data) != want {
		t.Errorf("primary:\ngot  %q\nwant %q", data, want)
	}
}

func TestSaveWritesBackupFirst(t *testing.T) {
	fsys := zfilesystem.NewMemFS()
	c := New(fsys)

	if err := c.Save(sampleStore()); err != nil {
		t.Fatalf("save: %v", err)
	}

	data, err := fsys.ReadFile(DefaultBackup)
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	want := "alice|30|alice@x.com|5551234567|1700000000\n" +
		"bob|45|bob@y.org|123|1700000200\n"
	if string(data) != want {
		t.Errorf("backup:\ngot  %q\nwant %q", data, want)
	}
}

func TestBackupIdempotent(t *testing.T) {
	fsys := zfilesystem.NewMemFS()
	c := New(fsys)
	s := sampleStore()

	if err := c.Backup(s); err != nil {
		t.Fatalf("first backup: %v", err)
	}
	first, _ := fsys.ReadFile(DefaultBackup)

	if err := c.Backup(s); err != nil {
		t.Fatalf("second backup: %v", err)
	}
	second, _ := fsys.ReadFile(DefaultBackup)

	if !bytes.Equal(first, second) {
		t.Errorf("backups differ:\n%q\n%q", first, second)
	}
}

func TestBackupDoesNotTouchPrimary(t *testing.T) {
	fsys := zfilesystem.NewMemFS()
	c := New(fsys)

	if err := c.Backup(sampleStore()); err != nil {
		t.Fatalf("backup: %v", err)
	}
	if _, err := fsys.ReadFile(DefaultPrimary); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("primary should not exist after backup, got err=%v", err)
	}
}

func TestSavePrimaryFailureKeepsBackup(t *testing.T) {
	mem := zfilesystem.NewMemFS()
	c := New(failingFS{ReadWriteFileFS: mem, failOn: DefaultPrimary})

	err := c.Save(sampleStore())
	if !errors.Is(err, errDiskFull) {
		t.Fatalf("save: got %v, want errDiskFull", err)
	}
	if !errors.Is(err, ErrPrimary) || errors.Is(err, ErrBackup) {
		t.Errorf("save: got %v, want only ErrPrimary", err)
	}

	if _, err := mem.ReadFile(DefaultBackup); err != nil {
		t.Errorf("backup should be written before the primary failure: %v", err)
	}
	if _, err := mem.ReadFile(DefaultPrimary); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("primary should not exist, got err=%v", err)
	}
}

func TestSaveBackupFailureStillWritesPrimary(t *testing.T) {
	mem := zfilesystem.NewMemFS()
	c := New(failingFS{ReadWriteFileFS: mem, failOn: DefaultBackup})

	err := c.Save(sampleStore())
	if !errors.Is(err, errDiskFull) {
		t.Fatalf("save: got %v, want errDiskFull", err)
	}
	if !errors.Is(err, ErrBackup) || errors.Is(err, ErrPrimary) {
		t.Errorf("save: got %v, want only ErrBackup", err)
	}
	if _, err := mem.ReadFile(DefaultPrimary); err != nil {
		t.Errorf("primary should still be written: %v", err)
	}
}

func TestSaveEmptyStoreWritesEmptyFiles(t *testing.T) {
	fsys := zfilesystem.NewMemFS()
	c := New(fsys)

	s := sampleStore()
	if err := c.Save(s); err != nil {
		t.Fatalf("save: %v", err)
	}
	s.Clear()
	if err := c.Save(s); err != nil {
		t.Fatalf("save empty: %v", err)
	}

	for _, name := range []string{DefaultPrimary, DefaultBackup} {
		data, err := fsys.ReadFile(name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if len(data) != 0 {
			t.Errorf("%s: expected empty file, got %q", name, data)
		}
	}
}

func TestCustomFileNames(t *testing.T) {
	fsys := zfilesystem.NewMemFS()
	c := New(fsys, WithPrimary("main.dat"), WithBackup("copy.dat"))

	if err := c.Save(sampleStore()); err != nil {
		t.Fatalf("save: %v", err)
	}
	for _, name := range []string{"main.dat", "copy.dat"} {
		if _, err := fsys.ReadFile(name); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
	if c.PrimaryName() != "main.dat" || c.BackupName() != "copy.dat" {
		t.Errorf("names: %s %s", c.PrimaryName(), c.BackupName())
	}
}

func TestDecodePrimarySkipsMalformed(t *testing.T) {
	input := strings.Join([]string{
		"alice 30 alice@x.com 5551234567 1700000000 1700000001",
		"too few fields here",
		"bob notanumber bob@y 123 1 2",
		"carol 22 c@z 999 1 2 extra",
		"dave 40 d@w 111 abc 2",
		"",
		"erin 50 e@v 222 3 4",
	}, "\n")

	s := store.New()
	loaded, skipped := DecodePrimary([]byte(input), s)

	if loaded != 2 {
		t.Errorf("loaded: got %d, want 2", loaded)
	}
	if skipped != 4 {
		t.Errorf("skipped: got %d, want 4", skipped)
	}
	for _, name := range []string{"alice", "erin"} {
		if _, ok := s.Get(name); !ok {
			t.Errorf("%s not loaded", name)
		}
	}
}

func TestLoadToleratesTabs(t *testing.T) {
	fsys := zfilesystem.NewMemFS()
	line := strings.Join([]string{"alice", "30", "a@x", "5551234567", "10", "20"}, "\t")
	if err := fsys.WriteFile(DefaultPrimary, []byte(line+"\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	s, n, err := New(fsys).Load()
	if err != nil || n != 1 {
		t.Fatalf("load: n=%d err=%v", n, err)
	}
	r, _ := s.Get("alice")
	if r.CreatedAt.Unix() != 10 || r.LastModifiedAt.Unix() != 20 {
		t.Errorf("timestamps: %d %d", r.CreatedAt.Unix(), r.LastModifiedAt.Unix())
	}
}

func TestEncodeZeroRecord(t *testing.T) {
	entries := []store.Entry{{Name: "z"}}

	if got := string(EncodeBackup(entries)); got != "z|0|||0\n" {
		t.Errorf("backup of zero record: got %q", got)
	}
	if got := string(EncodePrimary(entries, time.Unix(5, 0))); got != "z 0   0 5\n" {
		t.Errorf("primary of zero record: got %q", got)
	}
}
