package testutil

import (
	"context"
	"sync"
)

type SentCode struct {
	Email string
	Code  string
}

// FakeSender records confirmation codes instead of mailing them.
type FakeSender struct {
	mu   sync.Mutex
	Sent []SentCode
	Err  error
}

func (s *FakeSender) SendConfirmationCode(_ context.Context, email, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Sent = append(s.Sent, SentCode{Email: email, Code: code})
	return nil
}

func (s *FakeSender) Last() (SentCode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Sent) == 0 {
		return SentCode{}, false
	}
	return s.Sent[len(s.Sent)-1], true
}
