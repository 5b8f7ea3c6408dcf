// Package app holds the client side application state: who is signed in,
// their profile, and which step of the flow they are on.
package app

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rozgar/job-board/internal/api"
	"github.com/rozgar/job-board/internal/client"
	"github.com/rozgar/job-board/internal/profile"
	"github.com/rozgar/job-board/internal/user"
	"github.com/rs/zerolog"
)

type Step int

const (
	StepSignedOut Step = iota
	StepVerify
	StepJobs
)

func (s Step) String() string {
	switch s {
	case StepVerify:
		return "verify"
	case StepJobs:
		return "jobs"
	default:
		return "signed-out"
	}
}

const GenericErrorMessage = "Something went wrong. Please try again."

// Message returns the text to show for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return GenericErrorMessage
}

// API is the subset of the HTTP client the state needs.
type API interface {
	Register(ctx context.Context, name, email, password, role string) (api.Response, error)
	Login(ctx context.Context, email, password string) (api.Response, error)
	Logout(ctx context.Context) error
	SendVerifyOTP(ctx context.Context) (api.Response, error)
	VerifyAccount(ctx context.Context, otp string) (api.Response, error)
	Profile(ctx context.Context) (api.Response, error)
	SetToken(token string)
}

// Snapshot is a copy of the state at one point in time.
type Snapshot struct {
	User    *user.User
	Profile *profile.Profile
	Token   string
	Step    Step
}

func (s Snapshot) IsAuthenticated() bool {
	return s.User != nil && s.Step == StepJobs
}

type State struct {
	api     API
	storage Storage
	logger  zerolog.Logger

	mu      sync.Mutex
	user    *user.User
	profile *profile.Profile
	token   string
	step    Step
	subs    map[chan Snapshot]struct{}
}

func New(a API, storage Storage, logger zerolog.Logger) *State {
	return &State{
		api:     a,
		storage: storage,
		logger:  logger,
		subs:    map[chan Snapshot]struct{}{},
	}
}

// Subscribe returns a channel receiving a snapshot after every change and a
// function that stops the subscription. Slow readers only see the latest
// snapshot.
func (s *State) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
	}
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *State) snapshotLocked() Snapshot {
	snap := Snapshot{Token: s.token, Step: s.step}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	if s.profile != nil {
		p := *s.profile
		p.Skills = append([]string(nil), s.profile.Skills...)
		snap.Profile = &p
	}
	return snap
}

// set applies fn under the lock and notifies subscribers.
func (s *State) set(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
	snap := s.snapshotLocked()
	for ch := range s.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

// Restore loads the persisted session. A corrupt file is removed and the
// state stays signed out.
func (s *State) Restore() error {
	sess, err := s.storage.Load()
	switch {
	case errors.Is(err, ErrNoSession):
		s.set(func() { s.step = StepSignedOut })
		return nil
	case errors.Is(err, ErrCorruptSession):
		s.logger.Warn().Msg("removing corrupt stored session")
		if clearErr := s.storage.Clear(); clearErr != nil {
			return clearErr
		}
		s.set(func() { s.step = StepSignedOut })
		return nil
	case err != nil:
		return err
	}
	s.api.SetToken(sess.Token)
	s.set(func() {
		u := sess.User
		s.user = &u
		s.token = sess.Token
		s.step = StepJobs
	})
	return nil
}

func (s *State) Signup(ctx context.Context, name, email, password, role string) error {
	res, err := s.api.Register(ctx, name, email, password, role)
	if err != nil {
		return err
	}
	s.set(func() {
		s.user = res.User
		s.token = res.TempToken
		s.profile = nil
	})
	if _, err := s.api.SendVerifyOTP(ctx); err != nil {
		return err
	}
	s.set(func() { s.step = StepVerify })
	return nil
}

// Login signs in. Unverified users are sent a code and moved to the verify
// step without being granted access.
func (s *State) Login(ctx context.Context, email, password string) error {
	res, err := s.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	if res.User == nil {
		return errors.New("login response has no user")
	}
	if !res.User.IsVerified {
		s.set(func() {
			s.user = res.User
			s.token = res.TempToken
			s.profile = nil
		})
		if _, err := s.api.SendVerifyOTP(ctx); err != nil && Message(err) != api.MsgThrottled {
			return err
		}
		s.set(func() { s.step = StepVerify })
		return nil
	}
	if err := s.storage.Save(Session{User: *res.User, Token: res.Token}); err != nil {
		return err
	}
	s.set(func() {
		s.user = res.User
		s.token = res.Token
		s.step = StepJobs
	})
	s.refreshProfile(ctx)
	return nil
}

func (s *State) VerifyOTP(ctx context.Context, code string) error {
	res, err := s.api.VerifyAccount(ctx, code)
	if err != nil {
		return err
	}
	if res.User == nil {
		return errors.New("verify response has no user")
	}
	if err := s.storage.Save(Session{User: *res.User, Token: res.Token}); err != nil {
		return err
	}
	s.set(func() {
		s.user = res.User
		s.token = res.Token
		s.step = StepJobs
	})
	s.refreshProfile(ctx)
	return nil
}

// Logout always ends the local session, the server call is best effort.
func (s *State) Logout(ctx context.Context) error {
	if err := s.api.Logout(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("server logout failed")
	}
	err := s.storage.Clear()
	s.api.SetToken("")
	s.set(func() {
		s.user = nil
		s.profile = nil
		s.token = ""
		s.step = StepSignedOut
	})
	return err
}

func (s *State) refreshProfile(ctx context.Context) {
	res, err := s.api.Profile(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("unable to load profile")
		return
	}
	s.set(func() { s.profile = res.Profile })
}

// SetProfile replaces the cached profile, after the caller saved it.
func (s *State) SetProfile(p *profile.Profile) {
	s.set(func() { s.profile = p })
}
