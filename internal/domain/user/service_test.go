package user

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"
)

type memoryUserRepo struct {
	mu     sync.Mutex
	users  map[int64]*User
	nextID int64
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[int64]*User), nextID: 1}
}

func (r *memoryUserRepo) Create(ctx context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.ID = r.nextID
	r.nextID++
	u.CreatedAt = time.Now()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memoryUserRepo) GetByUsername(ctx context.Context, username string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *memoryUserRepo) GetByID(ctx context.Context, id int64) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (r *memoryUserRepo) List(ctx context.Context) ([]User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := []User{}
	for _, u := range r.users {
		res = append(res, *u)
	}
	return res, nil
}

func (r *memoryUserRepo) Update(ctx context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memoryUserRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = hash
	return nil
}

func (r *memoryUserRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.users, id)
	return nil
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := NewService(newMemoryUserRepo())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "", "a@b.c", "pw"); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("expected missing fields error, got %v", err)
	}

	u, err := svc.Register(ctx, "alice", "alice@example.com", "secret")
	if err != nil {
		t.Fatalf("unexpected register error: %v", err)
	}
	if u.IsStaff {
		t.Fatalf("self-registered accounts must not be staff")
	}
	if u.PasswordHash == "secret" {
		t.Fatalf("password stored in the clear")
	}

	if _, err := svc.Register(ctx, "alice", "other@example.com", "pw"); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected duplicate username error, got %v", err)
	}

	if _, err := svc.Authenticate(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected credential error, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody", "secret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected credential error for unknown user, got %v", err)
	}
	got, err := svc.Authenticate(ctx, "alice", "secret")
	if err != nil {
		t.Fatalf("unexpected authenticate error: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("authenticated the wrong user")
	}
}

func TestAdminCreateStaff(t *testing.T) {
	svc := NewService(newMemoryUserRepo())
	ctx := context.Background()

	u, err := svc.Create(ctx, "admin", "", "pw", true)
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if !u.IsStaff {
		t.Fatalf("staff flag not applied")
	}
}

func TestChangePassword(t *testing.T) {
	svc := NewService(newMemoryUserRepo())
	ctx := context.Background()

	u, err := svc.Register(ctx, "bob", "", "old-pw")
	if err != nil {
		t.Fatalf("unexpected register error: %v", err)
	}

	if err := svc.ChangePassword(ctx, u.ID, "bad-guess", "new-pw"); !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("expected wrong password error, got %v", err)
	}
	if err := svc.ChangePassword(ctx, u.ID, "old-pw", "new-pw"); err != nil {
		t.Fatalf("unexpected change error: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "bob", "old-pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password must stop working")
	}
	if _, err := svc.Authenticate(ctx, "bob", "new-pw"); err != nil {
		t.Fatalf("new password must work: %v", err)
	}
}

func TestResetPassword(t *testing.T) {
	svc := NewService(newMemoryUserRepo())
	ctx := context.Background()

	u, err := svc.Register(ctx, "carol", "", "old-pw")
	if err != nil {
		t.Fatalf("unexpected register error: %v", err)
	}

	// reset does not need the old password
	if err := svc.ResetPassword(ctx, u.ID, "issued-pw"); err != nil {
		t.Fatalf("unexpected reset error: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "carol", "issued-pw"); err != nil {
		t.Fatalf("issued password must work: %v", err)
	}

	if err := svc.ResetPassword(ctx, 999, "pw"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestUpdateUser(t *testing.T) {
	svc := NewService(newMemoryUserRepo())
	ctx := context.Background()

	u, err := svc.Register(ctx, "dave", "dave@example.com", "pw")
	if err != nil {
		t.Fatalf("unexpected register error: %v", err)
	}
	if _, err := svc.Register(ctx, "erin", "", "pw"); err != nil {
		t.Fatalf("unexpected register error: %v", err)
	}

	taken := "erin"
	if _, err := svc.Update(ctx, u.ID, UpdateInput{Username: &taken}); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected duplicate username error, got %v", err)
	}

	staff := true
	newPw := "rotated"
	updated, err := svc.Update(ctx, u.ID, UpdateInput{IsStaff: &staff, Password: &newPw})
	if err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}
	if !updated.IsStaff {
		t.Fatalf("staff flag not applied")
	}
	if _, err := svc.Authenticate(ctx, "dave", "rotated"); err != nil {
		t.Fatalf("rotated password must work: %v", err)
	}
}
