package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/chatcore/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createUser(t *testing.T, users *UserRepository, name string) *model.User {
	t.Helper()
	u := &model.User{Name: name, Email: uuid.NewString() + "@example.com"}
	require.NoError(t, users.Create(context.Background(), u))
	return u
}

func TestUserRepository(t *testing.T) {
	db := needDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)

	alice := createUser(t, users, "Alice")
	bob := createUser(t, users, "Bob")

	found, err := users.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", found.Name)

	_, err = users.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	dup := &model.User{Name: "Alice again", Email: alice.Email}
	assert.ErrorIs(t, users.Create(ctx, dup), ErrDuplicate)

	many, err := users.FindByIDs(ctx, []uuid.UUID{alice.ID, bob.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, many, 2)

	require.NoError(t, users.AddDevice(ctx, alice.ID, "tok", "android"))
	require.NoError(t, users.AddDevice(ctx, alice.ID, "tok", "ios"))
	devices, err := users.GetUserDevices(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "ios", devices[0].DeviceType)
}

func TestDirectConversationIsUniquePerPair(t *testing.T) {
	db := needDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	convs := NewConversationRepository(db)

	alice := createUser(t, users, "Alice")
	bob := createUser(t, users, "Bob")

	conv, err := convs.Create(ctx, model.NewDirectRecord(alice.ID, bob.ID, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, model.ConversationDirect, conv.Kind)

	_, err = convs.Create(ctx, model.NewDirectRecord(bob.ID, alice.ID, time.Now()))
	assert.ErrorIs(t, err, ErrDuplicate)

	found, err := convs.FindDirect(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, found.ID)
}

func TestConcurrentDirectCreateYieldsOne(t *testing.T) {
	db := needDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	convs := NewConversationRepository(db)

	alice := createUser(t, users, "Alice")
	bob := createUser(t, users, "Bob")

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := alice.ID, bob.ID
			if i%2 == 1 {
				a, b = b, a
			}
			_, err := convs.Create(ctx, model.NewDirectRecord(a, b, time.Now()))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	created := 0
	for err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, ErrDuplicate)
	}
	assert.Equal(t, 1, created)
}

func TestGroupMembers(t *testing.T) {
	db := needDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	convs := NewConversationRepository(db)

	alice := createUser(t, users, "Alice")
	bob := createUser(t, users, "Bob")
	carol := createUser(t, users, "Carol")

	group, err := convs.Create(ctx, model.NewGroupRecord(alice.ID, "Team", []uuid.UUID{alice.ID, bob.ID}, time.Now()))
	require.NoError(t, err)

	added, err := convs.AddMembers(ctx, group.ID, []uuid.UUID{carol.ID, bob.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, added)

	loaded, err := convs.FindByID(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{alice.ID, bob.ID, carol.ID}, loaded.Group.Members)

	removed, err := convs.RemoveMember(ctx, group.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = convs.RemoveMember(ctx, group.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	listed, err := convs.ListForUser(ctx, carol.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, group.ID, listed[0].ID)

	listed, err = convs.ListForUser(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, listed)

	require.NoError(t, convs.Rename(ctx, group.ID, "Renamed"))
	require.NoError(t, convs.SoftDelete(ctx, group.ID))

	_, err = convs.FindByID(ctx, group.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	deleted, err := convs.FindByIDWithDeleted(ctx, group.ID)
	require.NoError(t, err)
	assert.NotNil(t, deleted.DeletedAt)
	assert.Equal(t, "Renamed", deleted.Group.Name)

	require.NoError(t, convs.Restore(ctx, group.ID))
	_, err = convs.FindByID(ctx, group.ID)
	require.NoError(t, err)
}

func TestMessagesPagingAndReads(t *testing.T) {
	db := needDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	convs := NewConversationRepository(db)
	msgs := NewMessageRepository(db)

	alice := createUser(t, users, "Alice")
	bob := createUser(t, users, "Bob")
	conv, err := convs.Create(ctx, model.NewDirectRecord(alice.ID, bob.ID, time.Now()))
	require.NoError(t, err)

	last, err := msgs.LastMessages(ctx, []uuid.UUID{conv.ID})
	require.NoError(t, err)
	assert.Empty(t, last)

	base := time.Now().Add(-time.Hour)
	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		m := &model.Message{
			ConversationID: conv.ID,
			SenderID:       alice.ID,
			ReceiverID:     &bob.ID,
			Text:           "m",
			DateTime:       at,
			CreatedAt:      at,
		}
		require.NoError(t, msgs.CreateAndTouch(ctx, m))
		ids = append(ids, m.ID)
	}

	touched, err := convs.FindByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, base.Add(4*time.Minute), touched.LastUpdated, time.Millisecond)

	page1, err := msgs.ListPage(ctx, conv.ID, 2, 0)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.Equal(t, ids[4], page1[0].ID)
	assert.Equal(t, ids[3], page1[1].ID)
	require.NotNil(t, page1[0].Sender)
	assert.Equal(t, "Alice", page1[0].Sender.Name)

	page3, err := msgs.ListPage(ctx, conv.ID, 2, 4)
	require.NoError(t, err)
	require.Len(t, page3, 1)
	assert.Equal(t, ids[0], page3[0].ID)

	unread, err := msgs.CountUnread(ctx, conv.ID, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 5, unread)
	unread, err = msgs.CountUnread(ctx, conv.ID, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, unread)

	other, err := convs.Create(ctx, model.NewGroupRecord(bob.ID, "Quiet", []uuid.UUID{bob.ID, alice.ID}, time.Now()))
	require.NoError(t, err)
	counts, err := msgs.UnreadCounts(ctx, []uuid.UUID{conv.ID, other.ID}, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]int64{conv.ID: 5}, counts)

	last, err = msgs.LastMessages(ctx, []uuid.UUID{conv.ID, other.ID})
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, ids[4], last[conv.ID].ID)

	require.NoError(t, msgs.SoftDelete(ctx, ids[0]))

	n, err := msgs.MarkRead(ctx, conv.ID, bob.ID, time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
	n, err = msgs.MarkRead(ctx, conv.ID, bob.ID, time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	statuses, err := msgs.ReadStatuses(ctx, ids[4])
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, bob.ID, statuses[0].UserID)

	require.NoError(t, msgs.Restore(ctx, ids[0]))
	unread, err = msgs.CountUnread(ctx, conv.ID, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)

	_, err = msgs.FindByID(ctx, uuid.New(), true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentMarkReadCreatesOneStatusPerMessage(t *testing.T) {
	db := needDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	convs := NewConversationRepository(db)
	msgs := NewMessageRepository(db)

	alice := createUser(t, users, "Alice")
	bob := createUser(t, users, "Bob")
	conv, err := convs.Create(ctx, model.NewDirectRecord(alice.ID, bob.ID, time.Now()))
	require.NoError(t, err)

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		m := &model.Message{ConversationID: conv.ID, SenderID: alice.ID, ReceiverID: &bob.ID, Text: "x", DateTime: time.Now()}
		require.NoError(t, msgs.CreateAndTouch(ctx, m))
		ids = append(ids, m.ID)
	}

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := msgs.MarkRead(ctx, conv.ID, bob.ID, time.Now())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	for _, id := range ids {
		statuses, err := msgs.ReadStatuses(ctx, id)
		require.NoError(t, err)
		assert.Len(t, statuses, 1)
	}
}

func TestMarkReadLargeBacklog(t *testing.T) {
	db := needDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	convs := NewConversationRepository(db)
	msgs := NewMessageRepository(db)

	alice := createUser(t, users, "Alice")
	bob := createUser(t, users, "Bob")
	conv, err := convs.Create(ctx, model.NewDirectRecord(alice.ID, bob.ID, time.Now()))
	require.NoError(t, err)

	// more rows than fit in one statement's bind parameters at three per row
	const backlog = 25000
	require.NoError(t, db.WithContext(ctx).Exec(`
		INSERT INTO messages (conversation_id, sender_id, receiver_id, text, date_time, created_at, updated_at)
		SELECT ?, ?, ?, 'm' || g, now(), now(), now()
		FROM generate_series(1, ?) AS g`,
		conv.ID, alice.ID, bob.ID, backlog).Error)

	unread, err := msgs.CountUnread(ctx, conv.ID, bob.ID)
	require.NoError(t, err)
	require.EqualValues(t, backlog, unread)

	n, err := msgs.MarkRead(ctx, conv.ID, bob.ID, time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, backlog, n)

	unread, err = msgs.CountUnread(ctx, conv.ID, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, unread)
}
