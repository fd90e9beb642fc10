package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/lumina-ims/lumina/internal/shared"
)

type fakeRepo struct {
	nextID int64
	rows   map[int64]*Notification
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: map[int64]*Notification{}}
}

func (f *fakeRepo) ListForUser(_ context.Context, userID string, limit, offset int) ([]Notification, error) {
	var out []Notification
	for _, n := range f.rows {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepo) CountUnread(_ context.Context, userID string) (int64, error) {
	var n int64
	for _, row := range f.rows {
		if row.UserID == userID && !row.Read {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) Create(_ context.Context, in CreateInput) (*Notification, error) {
	f.nextID++
	n := &Notification{
		ID: f.nextID, UserID: in.UserID, Title: in.Title, Message: in.Message,
		Link: in.Link, Type: in.Type, Metadata: in.Metadata, CreatedAt: time.Now(),
	}
	f.rows[n.ID] = n
	cp := *n
	return &cp, nil
}

func (f *fakeRepo) MarkRead(_ context.Context, in MarkReadInput) (int64, error) {
	var updated int64
	for _, n := range f.rows {
		if n.UserID != in.UserID || n.Read {
			continue
		}
		if len(in.IDs) > 0 {
			for _, id := range in.IDs {
				if n.ID == id {
					n.Read = true
					updated++
				}
			}
		} else if n.Link == in.Link {
			n.Read = true
			updated++
		}
	}
	return updated, nil
}

func (f *fakeRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.rows[id]; !ok {
		return shared.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

const userID = "dddddddd-0000-0000-0000-000000000004"

func TestCreatePublishesToUserChannel(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	svc := NewService(newFakeRepo(), rdb)

	sub := rdb.Subscribe(context.Background(), Channel(userID))
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(context.Background())
	require.NoError(t, err)

	created, err := svc.Create(context.Background(), CreateInput{
		UserID: userID, Title: "Low Stock", Message: "LED Bulb is running low", Type: "stock",
	})
	require.NoError(t, err)
	require.False(t, created.Read)
	require.Equal(t, "stock", created.Type)

	select {
	case msg := <-sub.Channel():
		var got Notification
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		require.Equal(t, created.ID, got.ID)
		require.Equal(t, "Low Stock", got.Title)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a published notification")
	}
}

func TestMarkReadByIDsOrLink(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	a, err := svc.Create(context.Background(), CreateInput{UserID: userID, Title: "A", Message: "a", Link: "/requests/1"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateInput{UserID: userID, Title: "B", Message: "b", Link: "/requests/1"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateInput{UserID: userID, Title: "C", Message: "c", Link: "/requests/2"})
	require.NoError(t, err)

	_, err = svc.MarkRead(context.Background(), MarkReadInput{UserID: userID})
	require.ErrorIs(t, err, ErrMarkReadInput)

	updated, err := svc.MarkRead(context.Background(), MarkReadInput{UserID: userID, IDs: []int64{a.ID}})
	require.NoError(t, err)
	require.EqualValues(t, 1, updated)

	updated, err = svc.MarkRead(context.Background(), MarkReadInput{UserID: userID, Link: "/requests/1"})
	require.NoError(t, err)
	require.EqualValues(t, 1, updated)

	unread, err := svc.CountUnread(context.Background(), userID)
	require.NoError(t, err)
	require.EqualValues(t, 1, unread)
}

func TestListDefaultsAndDelete(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	n, err := svc.Create(context.Background(), CreateInput{UserID: userID, Title: "A", Message: "a"})
	require.NoError(t, err)
	require.Equal(t, "info", n.Type)

	list, err := svc.List(context.Background(), userID, 0, -5)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, svc.Delete(context.Background(), n.ID))
	require.ErrorIs(t, svc.Delete(context.Background(), n.ID), shared.ErrNotFound)
}
