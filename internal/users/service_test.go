package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/lumina-ims/lumina/internal/shared"
)

type fakeRepo struct {
	users  map[string]*User
	hashes map[string]string
	roles  []Role
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:  map[string]*User{},
		hashes: map[string]string{},
		roles: []Role{
			{ID: RoleSuperAdmin, Name: "Super Admin"},
			{ID: RoleBranchManager, Name: "Branch Manager"},
			{ID: RoleAdmin, Name: "Admin"},
		},
	}
}

func (f *fakeRepo) ListByBranch(_ context.Context, branchID int64) ([]User, error) {
	var out []User
	for _, u := range f.users {
		if u.BranchID != nil && *u.BranchID == branchID {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListAll(_ context.Context) ([]User, error) {
	var out []User
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeRepo) GetByID(_ context.Context, userID string) (*User, error) {
	if u, ok := f.users[userID]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, shared.ErrNotFound
}

func (f *fakeRepo) Create(_ context.Context, userID, passwordHash string, in CreateUserInput) error {
	for _, u := range f.users {
		if u.Email == in.Email {
			return ErrEmailTaken
		}
	}
	f.users[userID] = &User{
		UserID:   userID,
		Name:     in.Name,
		Email:    in.Email,
		RoleID:   in.RoleID,
		BranchID: in.BranchID,
		Status:   in.Status,
	}
	f.hashes[userID] = passwordHash
	return nil
}

func (f *fakeRepo) Update(_ context.Context, userID string, in UpdateUserInput) (*User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.RoleID != nil {
		u.RoleID = *in.RoleID
	}
	if in.BranchID != nil {
		u.BranchID = in.BranchID
	}
	if in.Status != nil {
		u.Status = *in.Status
	}
	cp := *u
	return &cp, nil
}

func (f *fakeRepo) Delete(_ context.Context, userID string) error {
	if _, ok := f.users[userID]; !ok {
		return shared.ErrNotFound
	}
	delete(f.users, userID)
	return nil
}

func (f *fakeRepo) ListRoles(_ context.Context) ([]Role, error) {
	return f.roles, nil
}

func TestCreateHashesPassword(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	created, err := svc.Create(context.Background(), "", CreateUserInput{
		Name:     "Ana Reyes",
		Email:    "ana@example.com",
		Password: "a strong password",
		RoleID:   RoleAdmin,
	})
	require.NoError(t, err)
	require.Equal(t, "Active", created.Status)

	hash := repo.hashes[created.UserID]
	require.NotEqual(t, "a strong password", hash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("a strong password")))
}

func TestCreateDuplicateEmail(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	_, err := svc.Create(context.Background(), "", CreateUserInput{Name: "A", Email: "dup@example.com", Password: "p4ssw0rd!", RoleID: RoleAdmin})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), "", CreateUserInput{Name: "B", Email: "dup@example.com", Password: "p4ssw0rd!", RoleID: RoleAdmin})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestListByBranch(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	b1, b2 := int64(1), int64(2)
	for _, in := range []CreateUserInput{
		{Name: "One", Email: "one@example.com", Password: "p4ssw0rd!", RoleID: RoleBranchManager, BranchID: &b1},
		{Name: "Two", Email: "two@example.com", Password: "p4ssw0rd!", RoleID: RoleAdmin, BranchID: &b1},
		{Name: "Three", Email: "three@example.com", Password: "p4ssw0rd!", RoleID: RoleAdmin, BranchID: &b2},
	} {
		_, err := svc.Create(context.Background(), "", in)
		require.NoError(t, err)
	}

	list, err := svc.ListByBranch(context.Background(), b1)
	require.NoError(t, err)
	require.Len(t, list, 2)

	all, err := svc.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestUpdateAndDelete(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	created, err := svc.Create(context.Background(), "", CreateUserInput{Name: "Ana", Email: "ana@example.com", Password: "p4ssw0rd!", RoleID: RoleAdmin})
	require.NoError(t, err)

	name := "Ana Reyes"
	status := "Inactive"
	updated, err := svc.Update(context.Background(), "", created.UserID, UpdateUserInput{Name: &name, Status: &status})
	require.NoError(t, err)
	require.Equal(t, "Ana Reyes", updated.Name)
	require.Equal(t, "Inactive", updated.Status)

	require.NoError(t, svc.Delete(context.Background(), "", created.UserID))
	_, err = svc.Get(context.Background(), created.UserID)
	require.ErrorIs(t, err, shared.ErrNotFound)

	require.ErrorIs(t, svc.Delete(context.Background(), "", "missing"), shared.ErrNotFound)
}
