package server

import (
	"fmt"
	"strconv"

	"github.com/zarlcorp/zrecord/internal/audit"
	"github.com/zarlcorp/zrecord/internal/record"
	"github.com/zarlcorp/zrecord/internal/store"
)

type handler func(s *Server, tok *tokenizer) error

// commands maps every accepted keyword, synonyms included, to its handler.
var commands = map[string]handler{
	"ADD":        (*Server).cmdAdd,
	"CREATE":     (*Server).cmdAdd,
	"GET":        (*Server).cmdGet,
	"FIND":       (*Server).cmdGet,
	"DELETE":     (*Server).cmdDelete,
	"REMOVE":     (*Server).cmdDelete,
	"LIST":       (*Server).cmdList,
	"SHOWALL":    (*Server).cmdList,
	"UPDATE":     (*Server).cmdUpdate,
	"EDIT":       (*Server).cmdUpdate,
	"STATS":      (*Server).cmdStats,
	"STATISTICS": (*Server).cmdStats,
	"SEARCH":     (*Server).cmdSearch,
	"BACKUP":     (*Server).cmdBackup,
	"GENERATE":   (*Server).cmdGenerate,
	"GEN":        (*Server).cmdGenerate,
	"CLEAR":      (*Server).cmdClear,
	"WIPE":       (*Server).cmdClear,
	"EXIT":       (*Server).cmdExit,
	"QUIT":       (*Server).cmdExit,
	"HELP":       (*Server).cmdHelp,
}

// ask prints label and reads one token. End of input shuts the server down.
func (s *Server) ask(tok *tokenizer, label string) (string, error) {
	s.print(label)
	v, ok := tok.next()
	if !ok {
		s.println()
		s.inputFailed(tok)
		s.shutdown()
		return "", errShutdown
	}
	return v, nil
}

func (s *Server) cmdAdd(tok *tokenizer) error {
	s.println("enter user details:")
	var in [4]string
	for i, label := range []string{"  name: ", "  age: ", "  email: ", "  phone: "} {
		v, err := s.ask(tok, label)
		if err != nil {
			return err
		}
		in[i] = v
	}
	name, email, phone := in[0], in[2], in[3]

	age, err := strconv.Atoi(in[1])
	if err != nil || !store.ValidAge(age) {
		s.printf("validation error: age must be between %d and %d\n", store.MinAge, store.MaxAge)
		return fmt.Errorf("%w: age %q", ErrValidation, in[1])
	}

	s.store.Upsert(name, record.New(age, email, phone, s.store.Now()))
	err = s.persist()
	s.eventf(audit.Create, "User '%s' added to database", name)
	s.printf("user '%s' registered\n", name)
	return err
}

func (s *Server) cmdGet(tok *tokenizer) error {
	name, err := s.ask(tok, "")
	if err != nil {
		return err
	}

	r, ok := s.store.Get(name)
	if !ok {
		s.printf("user '%s' not found\n", name)
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	s.println(renderProfile(name, r))
	s.eventf(audit.Retrieve, "User '%s' data accessed", name)
	return nil
}

func (s *Server) cmdDelete(tok *tokenizer) error {
	name, err := s.ask(tok, "")
	if err != nil {
		return err
	}

	if !s.store.Delete(name) {
		s.printf("user '%s' not found\n", name)
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	err = s.persist()
	s.eventf(audit.Delete, "User '%s' removed from database", name)
	s.printf("user '%s' deleted\n", name)
	return err
}

func (s *Server) cmdList(_ *tokenizer) error {
	entries := s.store.List()
	if len(entries) == 0 {
		s.println("database is empty")
		return nil
	}

	s.printf("registered users (%d records):\n", len(entries))
	s.println(renderTable(entries))
	s.eventf(audit.List, "Displayed all %d user records", len(entries))
	return nil
}

func (s *Server) cmdUpdate(tok *tokenizer) error {
	name, err := s.ask(tok, "")
	if err != nil {
		return err
	}

	cur, ok := s.store.Get(name)
	if !ok {
		s.printf("user '%s' not found\n", name)
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	s.printf("editing user: %s\n", name)
	ageIn, err := s.ask(tok, fmt.Sprintf("  age %d -> ", cur.Age))
	if err != nil {
		return err
	}
	email, err := s.ask(tok, fmt.Sprintf("  email %s -> ", cur.Email))
	if err != nil {
		return err
	}
	phone, err := s.ask(tok, fmt.Sprintf("  phone %s -> ", cur.Phone))
	if err != nil {
		return err
	}

	// the age range is only enforced on creation
	age, err := strconv.Atoi(ageIn)
	if err != nil {
		s.println("validation error: age must be a number")
		return fmt.Errorf("%w: age %q", ErrValidation, ageIn)
	}

	s.store.Update(name, age, email, phone)
	err = s.persist()
	s.eventf(audit.Update, "User '%s' profile modified", name)
	s.println("user profile updated")
	return err
}

func (s *Server) cmdStats(_ *tokenizer) error {
	s.println(renderStats(stats{
		users:      s.store.Len(),
		operations: s.operations,
		uptime:     s.clock().Sub(s.started),
		dataFile:   s.codec.PrimaryName(),
	}))
	s.event(audit.System, "Server statistics accessed")
	return nil
}

func (s *Server) cmdSearch(tok *tokenizer) error {
	term, err := s.ask(tok, "")
	if err != nil {
		return err
	}

	s.printf("searching for: '%s'\n", term)
	names := s.store.Search(term)
	if len(names) == 0 {
		s.println("no matching records found")
		return nil
	}

	s.printf("found %d result(s):\n", len(names))
	for i, n := range names {
		s.printf("  %d. %s\n", i+1, n)
	}
	return nil
}

func (s *Server) cmdBackup(_ *tokenizer) error {
	if err := s.codec.Backup(s.store); err != nil {
		s.event(audit.Error, "Manual backup failed")
		s.printf("ERROR: backup failed: %v\n", err)
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	s.printf("backup created: %s\n", s.codec.BackupName())
	s.event(audit.System, "Manual backup created")
	return nil
}

func (s *Server) cmdGenerate(tok *tokenizer) error {
	in, err := s.ask(tok, "number of test records to generate: ")
	if err != nil {
		return err
	}

	n, err := strconv.Atoi(in)
	if err != nil || !store.ValidGenerateCount(n) {
		s.printf("error: enter a number between %d and %d\n", store.MinGenerate, store.MaxGenerate)
		return fmt.Errorf("%w: count %q", ErrValidation, in)
	}

	s.store.GenerateSynthetic(n)
	err = s.persist()
	s.printf("generated %d test records\n", n)
	s.eventf(audit.System, "Generated %d test records", n)
	return err
}

func (s *Server) cmdClear(tok *tokenizer) error {
	s.println("SECURITY ALERT: this will permanently delete ALL records")
	confirm, err := s.ask(tok, fmt.Sprintf("type '%s' to proceed: ", ConfirmToken))
	if err != nil {
		return err
	}

	if confirm != ConfirmToken {
		s.println("operation cancelled")
		return nil
	}

	n := s.store.Clear()
	err = s.persist()
	s.eventf(audit.Security, "Database wiped - %d records deleted", n)
	s.printf("database cleared, %d records removed\n", n)
	return err
}

func (s *Server) cmdExit(_ *tokenizer) error {
	s.shutdown()
	return errShutdown
}

func (s *Server) cmdHelp(_ *tokenizer) error {
	s.print(renderHelp())
	return nil
}
