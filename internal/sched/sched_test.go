package sched

import (
	"io"
	"testing"

	"github.com/phuslu/log"
)

func quietLogger() log.Logger {
	return log.Logger{Writer: log.IOWriter{Writer: io.Discard}}
}

func TestNew_RejectsUnknownTimezone(t *testing.T) {
	if _, err := New("Mars/Olympus", quietLogger()); err == nil {
		t.Fatal("want error for unknown timezone")
	}
}

func TestAdd_RejectsBadSpec(t *testing.T) {
	s, err := New("Asia/Seoul", quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Add("not a cron spec", "digest", func() {}); err == nil {
		t.Fatal("want error for bad spec")
	}
}

func TestAdd_AcceptsFiveFieldSpec(t *testing.T) {
	s, err := New("Asia/Seoul", quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Add("0 9 * * 1-5", "digest", func() {}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	s.Start()
	s.Stop()
}
