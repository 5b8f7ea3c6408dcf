package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rozgar/job-board/internal/email"
	"github.com/rozgar/job-board/internal/profile"
	"github.com/rozgar/job-board/internal/resume"
	"github.com/rozgar/job-board/internal/user"
)

type fakeUsers struct {
	mu    sync.Mutex
	seq   int
	users map[string]user.User
	codes map[string]user.VerificationCode
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[string]user.User{}, codes: map[string]user.VerificationCode{}}
}

func (f *fakeUsers) CreateUser(ctx context.Context, u *user.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.Email = user.NormalizeEmail(u.Email)
	if _, ok := f.users[u.Email]; ok {
		return user.ErrDuplicateEmail
	}
	f.seq++
	u.ID = fmt.Sprintf("user-%d", f.seq)
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	f.users[u.Email] = *u
	return nil
}

func (f *fakeUsers) GetUser(ctx context.Context, email string) (user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[user.NormalizeEmail(email)]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) update(email string, fn func(u *user.User)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[user.NormalizeEmail(email)]
	if !ok {
		return user.ErrNotFound
	}
	fn(&u)
	f.users[u.Email] = u
	return nil
}

func (f *fakeUsers) MarkVerified(ctx context.Context, email string) error {
	return f.update(email, func(u *user.User) { u.IsVerified = true })
}

func (f *fakeUsers) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	return f.update(email, func(u *user.User) { u.Password = passwordHash })
}

func (f *fakeUsers) UpdateName(ctx context.Context, email, name string) error {
	return f.update(email, func(u *user.User) { u.Name = name })
}

func codeKey(email, purpose string) string {
	return purpose + ":" + user.NormalizeEmail(email)
}

func (f *fakeUsers) SaveVerificationCode(ctx context.Context, code user.VerificationCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[codeKey(code.Email, code.Purpose)] = code
	return nil
}

func (f *fakeUsers) GetVerificationCode(ctx context.Context, email, purpose string) (user.VerificationCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.codes[codeKey(email, purpose)]
	if !ok {
		return c, user.ErrCodeNotFound
	}
	return c, nil
}

// ClaimVerificationCode mirrors the conditional $inc of the repository.
func (f *fakeUsers) ClaimVerificationCode(ctx context.Context, email, purpose string) (user.VerificationCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.codes[codeKey(email, purpose)]
	if !ok {
		return c, user.ErrCodeNotFound
	}
	if c.Attempts >= user.MaxOTPAttempts {
		return c, user.ErrTooManyAttempts
	}
	claimed := c
	c.Attempts++
	f.codes[codeKey(email, purpose)] = c
	return claimed, nil
}

func (f *fakeUsers) DeleteVerificationCode(ctx context.Context, email, purpose string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.codes, codeKey(email, purpose))
	return nil
}

func (f *fakeUsers) seed(t interface{ Fatal(...interface{}) }, name, email, password string, verified bool) user.User {
	hash, err := user.HashPassword(password)
	if err != nil {
		t.Fatal(err)
	}
	u := user.User{Name: name, Email: email, Password: hash, Role: user.RoleSeeker, IsVerified: verified}
	if err := f.CreateUser(context.Background(), &u); err != nil {
		t.Fatal(err)
	}
	return u
}

type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[string]profile.Profile
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{profiles: map[string]profile.Profile{}}
}

func (f *fakeProfiles) GetProfile(ctx context.Context, email string) (profile.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[email]
	if !ok {
		return p, profile.ErrNotFound
	}
	return p, nil
}

// SaveProfile behaves like the repository: an absent resume keeps the stored
// one, and completion is computed after that merge.
func (f *fakeProfiles) SaveProfile(ctx context.Context, p *profile.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	existing, ok := f.profiles[p.Email]
	if ok {
		p.CreatedAt = existing.CreatedAt
		if p.Resume == nil {
			p.Resume = existing.Resume
		}
	} else {
		p.CreatedAt = now
	}
	if p.Skills == nil {
		p.Skills = []string{}
	}
	p.UpdatedAt = now
	p.ProfileCompletion = profile.Completion(*p)
	f.profiles[p.Email] = *p
	return nil
}

type storedFile struct {
	contentType string
	data        []byte
}

type fakeResumes struct {
	mu    sync.Mutex
	files map[string]storedFile
}

func newFakeResumes() *fakeResumes {
	return &fakeResumes{files: map[string]storedFile{}}
}

func (f *fakeResumes) Put(ctx context.Context, key, contentType string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[key] = storedFile{contentType: contentType, data: data}
	return nil
}

func (f *fakeResumes) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[key]
	if !ok {
		return nil, resume.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(file.data)), nil
}

func (f *fakeResumes) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, key)
	return nil
}

var otpRe = regexp.MustCompile(`\d( \d){5}`)

type captureMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

type sentMail struct {
	to      string
	subject string
	body    string
}

func (m *captureMailer) SendHTMLEmail(ctx context.Context, to email.Address, subject, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: to.Email, subject: subject, body: html})
	return nil
}

// lastOTP returns the code in the last email sent to addr.
func (m *captureMailer) lastOTP(addr string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].to == addr {
			return strings.ReplaceAll(otpRe.FindString(m.sent[i].body), " ", "")
		}
	}
	return ""
}

func (m *captureMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}
