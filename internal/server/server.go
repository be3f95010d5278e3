// Package server implements the interactive command loop over the record
// store. A Server is not safe for concurrent use.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/zarlcorp/zrecord/internal/audit"
	"github.com/zarlcorp/zrecord/internal/persist"
	"github.com/zarlcorp/zrecord/internal/store"
)

// ConfirmToken must be entered to confirm CLEAR.
const ConfirmToken = "CONFIRM"

const prompt = "cmd> "

var (
	// ErrValidation marks input rejected before any mutation.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a command naming an absent record.
	ErrNotFound = errors.New("record not found")
	// ErrUnknownCommand marks an unrecognised command keyword.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrPersist marks a mutation that could not be written to disk. The
	// in-memory change is kept.
	ErrPersist = errors.New("persist failed")

	// errShutdown ends the loop after EXIT or end of input.
	errShutdown = errors.New("shutdown")
)

// Option configures a Server.
type Option func(*Server)

// WithAudit sets the audit log.
func WithAudit(l *audit.Log) Option {
	return func(s *Server) { s.audit = l }
}

// WithClock overrides the clock used for uptime.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.clock = now }
}

// WithStartupDelay sets the pause shown before the loop starts.
func WithStartupDelay(d time.Duration) Option {
	return func(s *Server) { s.delay = d }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithStoreOptions passes options to the store built on load.
func WithStoreOptions(opts ...store.Option) Option {
	return func(s *Server) { s.storeOpts = append(s.storeOpts, opts...) }
}

// Server dispatches text commands to the store and persists every mutation.
type Server struct {
	codec     *persist.Codec
	store     *store.Store
	storeOpts []store.Option
	audit     *audit.Log
	out       io.Writer
	log       *slog.Logger
	clock     func() time.Time
	delay     time.Duration

	started    time.Time
	operations int
}

// New creates a server persisting through codec and writing output to out.
// The store is loaded by Run.
func New(codec *persist.Codec, out io.Writer, opts ...Option) *Server {
	s := &Server{
		codec: codec,
		out:   out,
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		clock: time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	s.store = store.New(s.storeOpts...)
	s.started = s.clock()
	return s
}

// Store returns the live store.
func (s *Server) Store() *store.Store { return s.store }

// Operations returns how many commands have been processed.
func (s *Server) Operations() int { return s.operations }

// Run loads the store and processes commands from in until EXIT, end of
// input or cancellation of ctx. Every path out of the loop saves first.
func (s *Server) Run(ctx context.Context, in io.Reader) error {
	s.event(audit.System, "Record server initialized")
	defer s.event(audit.System, "Record server shutdown completed")
	if err := s.load(); err != nil {
		return err
	}
	s.boot(ctx)

	tok := newTokenizer(in)
	for {
		if ctx.Err() != nil {
			s.shutdown()
			return nil
		}

		s.print(prompt)
		word, ok := tok.next()
		if !ok {
			s.println()
			s.inputFailed(tok)
			s.shutdown()
			return nil
		}

		err := s.dispatch(word, tok)
		if errors.Is(err, errShutdown) {
			return nil
		}
		if err != nil {
			s.log.Debug("command", "cmd", word, "err", err)
		}

		tok.discardLine()
		s.println()
	}
}

func (s *Server) load() error {
	st, n, err := s.codec.Load(s.storeOpts...)
	switch {
	case errors.Is(err, persist.ErrNoDataFile):
		s.event(audit.System, "Database file not found. Initializing new database.")
	case err != nil:
		s.event(audit.Error, "Failed to read database file")
		return fmt.Errorf("run: %w", err)
	default:
		s.eventf(audit.System, "Database loaded successfully. Records: %d", n)
	}
	s.store = st
	return nil
}

func (s *Server) boot(ctx context.Context) {
	s.print("\ninitializing record server ")
	for range 3 {
		s.print(".")
		if s.delay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(s.delay / 3):
			}
		}
	}
	s.println(" online")
	s.println()
	s.println(renderBanner(s.store.Len()))
	s.println()
}

// dispatch runs one command. Every call counts as an operation.
func (s *Server) dispatch(word string, tok *tokenizer) error {
	s.operations++

	h, ok := commands[strings.ToUpper(word)]
	if !ok {
		s.println("unknown command, type HELP for available commands")
		return fmt.Errorf("%w: %s", ErrUnknownCommand, word)
	}
	return h(s, tok)
}

// persist saves the store. Each failed file is audited and reported on its
// own; the in-memory state is left as is.
func (s *Server) persist() error {
	err := s.codec.Save(s.store)
	if err == nil {
		return nil
	}
	if errors.Is(err, persist.ErrBackup) {
		s.event(audit.Error, "Failed to write backup file")
		s.printf("ERROR: cannot write backup file %s\n", s.codec.BackupName())
	}
	if errors.Is(err, persist.ErrPrimary) {
		s.event(audit.Error, "Failed to open database file for writing")
		s.printf("ERROR: cannot save to database file %s\n", s.codec.PrimaryName())
	}
	s.log.Error("persist", "err", err)
	return fmt.Errorf("%w: %w", ErrPersist, err)
}

// inputFailed reports a read error that ended the input stream early, such
// as a line over the scanner limit. Plain end of input is silent.
func (s *Server) inputFailed(tok *tokenizer) {
	err := tok.err()
	if err == nil {
		return
	}
	s.log.Error("read input", "err", err)
	s.event(audit.Error, "Input stream failed")
	s.printf("ERROR: cannot read input: %v\n", err)
}

func (s *Server) shutdown() {
	s.println("initiating shutdown sequence...")
	s.print("saving database... ")
	if err := s.persist(); err == nil {
		s.println("complete")
	}
	s.event(audit.System, "Normal shutdown initiated")
	s.println("shutdown complete")
}

func (s *Server) event(kind audit.Kind, msg string) {
	if err := s.audit.Event(kind, msg); err != nil {
		s.log.Warn("audit", "err", err)
	}
}

func (s *Server) eventf(kind audit.Kind, format string, args ...any) {
	s.event(kind, fmt.Sprintf(format, args...))
}

func (s *Server) print(a ...any) {
	fmt.Fprint(s.out, a...)
}

func (s *Server) println(a ...any) {
	fmt.Fprintln(s.out, a...)
}

func (s *Server) printf(format string, a ...any) {
	fmt.Fprintf(s.out, format, a...)
}
