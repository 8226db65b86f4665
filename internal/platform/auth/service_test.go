package auth

import (
	"context"
	"testing"
	"time"
)

type fakeUserStore struct {
	byEmail map[string]*User
	creates int
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	return f.byEmail[email], nil
}

func (f *fakeUserStore) FindOrCreate(ctx context.Context, email, newID string) (*User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	u := &User{ID: newID, Email: email}
	f.byEmail[email] = u
	f.creates++
	return u, nil
}

type fakeOTPCache struct {
	entries map[string]otpEntry
}

func (f *fakeOTPCache) Put(ctx context.Context, id string, e otpEntry, ttl time.Duration) error {
	f.entries[id] = e
	return nil
}

func (f *fakeOTPCache) Get(ctx context.Context, id string) (otpEntry, error) {
	e, ok := f.entries[id]
	if !ok {
		return otpEntry{}, ErrOTPNotFound
	}
	return e, nil
}

func (f *fakeOTPCache) Delete(ctx context.Context, id string) error {
	delete(f.entries, id)
	return nil
}

func newTestAuth() (*Service, *fakeUserStore, *fakeOTPCache) {
	users := &fakeUserStore{byEmail: make(map[string]*User)}
	otps := &fakeOTPCache{entries: make(map[string]otpEntry)}
	return NewServiceWith(users, otps, []byte("test-secret"), time.Minute), users, otps
}

func TestInitiateThenComplete(t *testing.T) {
	svc, users, _ := newTestAuth()
	ctx := context.Background()

	id, otp, err := svc.Initiate(ctx, "ada@example.edu")
	if err != nil {
		t.Fatal(err)
	}
	if id == "" || len(otp) != otpDigits {
		t.Fatalf("id=%q otp=%q", id, otp)
	}

	token, err := svc.Complete(ctx, id, otp)
	if err != nil {
		t.Fatal(err)
	}
	if token == "" {
		t.Error("empty token on success")
	}
	if users.creates != 1 {
		t.Errorf("user rows created = %d, want 1", users.creates)
	}
}

func TestCompleteRejectsWrongCode(t *testing.T) {
	svc, users, _ := newTestAuth()
	ctx := context.Background()

	id, _, err := svc.Initiate(ctx, "ada@example.edu")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Complete(ctx, id, "000000x"); err != ErrVerificationFailed {
		t.Errorf("err = %v, want ErrVerificationFailed", err)
	}
	if users.creates != 0 {
		t.Error("user row created despite failed verification")
	}
}

func TestCompleteRejectsUnknownOrExpiredID(t *testing.T) {
	svc, _, _ := newTestAuth()
	if _, err := svc.Complete(context.Background(), "unknown", "123456"); err != ErrVerificationFailed {
		t.Errorf("err = %v, want ErrVerificationFailed", err)
	}
}

func TestRetryAfterCompleteMapsToSameUser(t *testing.T) {
	svc, users, _ := newTestAuth()
	ctx := context.Background()

	id1, otp1, _ := svc.Initiate(ctx, "ada@example.edu")
	if _, err := svc.Complete(ctx, id1, otp1); err != nil {
		t.Fatal(err)
	}

	// A second full round for the same email must reuse the user row.
	id2, otp2, _ := svc.Initiate(ctx, "ada@example.edu")
	if _, err := svc.Complete(ctx, id2, otp2); err != nil {
		t.Fatal(err)
	}
	if users.creates != 1 {
		t.Errorf("user rows created = %d, want 1", users.creates)
	}
}
