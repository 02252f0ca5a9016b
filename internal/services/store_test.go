package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HussamZG/shakaoy-650/internal/domain"
	"github.com/HussamZG/shakaoy-650/internal/gateway"
)

func msgAt(id, complaintID string, ts time.Time) domain.Message {
	return domain.Message{ID: id, ComplaintID: complaintID, Text: "text " + id, Sender: domain.SenderUser, Timestamp: ts}
}

func TestStore_FetchDetails_LoadsSortedThread(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	env.seed(t, "c1", base)

	// inserted out of order
	for _, m := range []domain.Message{msgAt("m2", "c1", base.Add(2*time.Minute)), msgAt("m1", "c1", base.Add(time.Minute))} {
		m := m
		_, err := env.GW.InsertMessage(ctx, &m)
		require.NoError(t, err)
	}
	require.NoError(t, env.GW.InsertActionLog(ctx, &domain.ActionLogEntry{
		ComplaintID: "c1", ActionType: domain.ActionStatusChange, Details: "d", Timestamp: base.Add(3 * time.Minute),
	}))

	store := NewComplaintStore(env.GW)
	c, notices, err := store.FetchDetails(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, notices)
	require.Len(t, c.Messages, 2)
	assert.Equal(t, "m1", c.Messages[0].ID)
	assert.Equal(t, "m2", c.Messages[1].ID)
	assert.Len(t, c.ActionLogs, 1)

	cached, ok := store.Get("c1")
	require.True(t, ok)
	assert.Len(t, cached.Messages, 2)
}

func TestStore_FetchDetails_NotFound(t *testing.T) {
	env := newEnv(t)
	store := NewComplaintStore(env.GW)

	c, _, err := store.FetchDetails(context.Background(), "missing")
	assert.Nil(t, c)
	assert.ErrorIs(t, err, ErrComplaintNotFound)
	assert.Equal(t, 0, store.Len())

	_, _, err = store.FetchDetails(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyID)
}

func TestStore_FetchDetails_ToleratesThreadFailures(t *testing.T) {
	env := newEnv(t)
	env.seed(t, "c1", time.Now())
	gw := &faultyGW{Gateway: env.GW, listMsgsErr: errors.New("boom"), listLogsErr: errors.New("bang")}
	store := NewComplaintStore(gw)

	c, notices, err := store.FetchDetails(context.Background(), "c1")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.NotNil(t, c.Messages)
	assert.Empty(t, c.Messages)
	assert.NotNil(t, c.ActionLogs)
	assert.Empty(t, c.ActionLogs)
	require.Len(t, notices, 2)
	assert.Equal(t, NoticeMessages, notices[0].Scope)
	assert.Equal(t, NoticeActionLogs, notices[1].Scope)
}

func TestStore_UpdateStatus_RejectsNonCanonicalWithoutWriting(t *testing.T) {
	env := newEnv(t)
	env.seed(t, "c1", time.Now())
	store := NewComplaintStore(env.GW)

	for _, s := range []domain.Status{"", "in-progress", "done", "RESOLVED", " resolved"} {
		err := store.UpdateStatus(context.Background(), "c1", s, "note")
		assert.ErrorIs(t, err, ErrInvalidStatus, "status %q", s)
	}
	row, err := env.GW.GetComplaint(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, row.Status)
	assert.Nil(t, row.UpdatedAt)
	assert.Zero(t, env.count(t, &domain.ActionLogEntry{}))
}

func TestStore_UpdateStatus_WritesStatusAndLog(t *testing.T) {
	env := newEnv(t)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	env.seed(t, "c1", created)
	store := NewComplaintStore(env.GW)
	store.now = func() time.Time { return created.Add(time.Hour) }

	require.NoError(t, store.UpdateStatus(context.Background(), "c1", domain.StatusResolved, "تم الحل"))

	row, err := env.GW.GetComplaint(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResolved, row.Status)
	require.NotNil(t, row.UpdatedAt)
	assert.True(t, row.UpdatedAt.After(created))

	logs, err := env.GW.ListActionLogs(context.Background(), "c1", true)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.ActionStatusChange, logs[0].ActionType)
	assert.Equal(t, "تغيير الحالة إلى تم الحل", logs[0].Details)
	require.NotNil(t, logs[0].Notes)
	assert.Equal(t, "تم الحل", *logs[0].Notes)
}

func TestStore_UpdateStatus_LogFailureKeepsStatus(t *testing.T) {
	env := newEnv(t)
	env.seed(t, "c1", time.Now())
	store := NewComplaintStore(&faultyGW{Gateway: env.GW, insertLogErr: errors.New("no table")})

	require.NoError(t, store.UpdateStatus(context.Background(), "c1", domain.StatusClosed, ""))
	row, err := env.GW.GetComplaint(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, row.Status)
	assert.Zero(t, env.count(t, &domain.ActionLogEntry{}))
}

func TestStore_UpdateStatus_WriteFailures(t *testing.T) {
	env := newEnv(t)
	store := NewComplaintStore(env.GW)
	assert.ErrorIs(t, store.UpdateStatus(context.Background(), "nope", domain.StatusClosed, ""), ErrComplaintNotFound)

	env.seed(t, "c1", time.Now())
	store = NewComplaintStore(&faultyGW{Gateway: env.GW, updateStatusErr: errors.New("db down")})
	err := store.UpdateStatus(context.Background(), "c1", domain.StatusClosed, "")
	assert.ErrorIs(t, err, ErrStatusWrite)
	assert.Zero(t, env.count(t, &domain.ActionLogEntry{}))
}

func TestStore_AddMessage_BlankTextWritesNothing(t *testing.T) {
	env := newEnv(t)
	env.seed(t, "c1", time.Now())
	store := NewComplaintStore(env.GW)

	for _, text := range []string{"", " ", "\n\t  \r\n", " "} {
		m, err := store.AddMessage(context.Background(), "c1", text, domain.SenderUser)
		assert.Nil(t, m)
		assert.ErrorIs(t, err, ErrEmptyMessage, "text %q", text)
	}
	assert.Zero(t, env.count(t, &domain.Message{}))
}

func TestStore_AddMessage_Validation(t *testing.T) {
	env := newEnv(t)
	env.seed(t, "c1", time.Now())
	store := NewComplaintStore(env.GW)
	store.MaxMessageRunes = 3

	_, err := store.AddMessage(context.Background(), "c1", "abcd", domain.SenderUser)
	assert.ErrorIs(t, err, ErrMessageTooLong)
	_, err = store.AddMessage(context.Background(), "c1", "ok", "bot")
	assert.ErrorIs(t, err, ErrInvalidSender)
	_, err = store.AddMessage(context.Background(), "missing", "ok", domain.SenderAdmin)
	assert.ErrorIs(t, err, ErrComplaintNotFound)
}

func TestStore_AddMessage_DoesNotTouchCache(t *testing.T) {
	env := newEnv(t)
	env.seed(t, "c1", time.Now())
	store := NewComplaintStore(env.GW)
	_, _, err := store.FetchDetails(context.Background(), "c1")
	require.NoError(t, err)

	m, err := store.AddMessage(context.Background(), "c1", "  مرحبا\r\nبكم ", domain.SenderAdmin)
	require.NoError(t, err)
	assert.Equal(t, "مرحبا\nبكم", m.Text)
	assert.NotEmpty(t, m.ID)

	cached, _ := store.Get("c1")
	assert.Empty(t, cached.Messages)
}

func TestStore_ApplyMessageInsert_SuppressesDuplicates(t *testing.T) {
	store := NewComplaintStore(nil)
	store.ApplyComplaintUpdate(domain.Complaint{ID: "c1"})
	ts := time.Now().UTC()

	ids := []string{"a", "b", "a", "c", "b", "a"}
	distinct := map[string]struct{}{}
	for i, id := range ids {
		store.ApplyMessageInsert(msgAt(id, "c1", ts.Add(time.Duration(i)*time.Second)))
		distinct[id] = struct{}{}
	}
	c, _ := store.Get("c1")
	assert.Len(t, c.Messages, len(distinct))
}

func TestStore_ApplyMessageInsert_IgnoresUncachedComplaint(t *testing.T) {
	store := NewComplaintStore(nil)
	assert.False(t, store.ApplyMessageInsert(msgAt("m1", "ghost", time.Now())))
	assert.Equal(t, 0, store.Len())
}

func TestStore_ApplyComplaintUpdate_PreservesThread(t *testing.T) {
	store := NewComplaintStore(nil)
	ts := time.Now().UTC()
	store.ApplyComplaintUpdate(domain.Complaint{ID: "c1", Status: domain.StatusPending})
	store.ApplyMessageInsert(msgAt("m1", "c1", ts))
	store.ApplyMessageInsert(msgAt("m2", "c1", ts.Add(time.Second)))
	before, _ := store.Get("c1")

	store.ApplyComplaintUpdate(domain.Complaint{ID: "c1", Status: domain.StatusResolved, Title: "new"})

	after, _ := store.Get("c1")
	assert.Equal(t, domain.StatusResolved, after.Status)
	assert.Equal(t, "new", after.Title)
	assert.Equal(t, before.Messages, after.Messages)
}

func TestStore_ApplyMessageInsert_OutOfOrderIsResorted(t *testing.T) {
	store := NewComplaintStore(nil)
	store.ApplyComplaintUpdate(domain.Complaint{ID: "c1"})
	t1 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	store.ApplyMessageInsert(msgAt("late", "c1", t2))
	store.ApplyMessageInsert(msgAt("early", "c1", t1))

	c, _ := store.Get("c1")
	require.Len(t, c.Messages, 2)
	assert.Equal(t, "early", c.Messages[0].ID)
	assert.Equal(t, "late", c.Messages[1].ID)
}

func TestStore_Get_ReturnsCopy(t *testing.T) {
	store := NewComplaintStore(nil)
	store.ApplyComplaintUpdate(domain.Complaint{ID: "c1"})
	store.ApplyMessageInsert(msgAt("m1", "c1", time.Now()))

	c, _ := store.Get("c1")
	c.Messages[0].Text = "mutated"
	again, _ := store.Get("c1")
	assert.NotEqual(t, "mutated", again.Messages[0].Text)

	store.Forget("c1")
	_, ok := store.Get("c1")
	assert.False(t, ok)
}

func TestStore_SubscribeToChanges_MergesPushedEvents(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	env.seed(t, "c1", time.Now())

	store := NewComplaintStore(env.GW)
	t.Cleanup(store.Close)
	_, _, err := store.FetchDetails(ctx, "c1")
	require.NoError(t, err)
	require.NoError(t, store.SubscribeToChanges(ctx))

	m, err := store.AddMessage(ctx, "c1", "hello", domain.SenderUser)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		c, _ := store.Get("c1")
		return len(c.Messages) == 1 && c.Messages[0].ID == m.ID
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, store.UpdateStatus(ctx, "c1", domain.StatusInProgress, ""))
	require.Eventually(t, func() bool {
		c, _ := store.Get("c1")
		return c.Status == domain.StatusInProgress && len(c.Messages) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// a redelivered insert is a no-op
	assert.False(t, store.ApplyMessageInsert(*m))
}

func TestStore_SubscribeToChanges_KeepsSinglePair(t *testing.T) {
	env := newEnv(t)
	store := NewComplaintStore(env.GW)

	require.NoError(t, store.SubscribeToChanges(context.Background()))
	assert.Equal(t, 2, env.Broker.Subscribers())
	require.NoError(t, store.SubscribeToChanges(context.Background()))
	assert.Equal(t, 2, env.Broker.Subscribers())

	store.Close()
	assert.Equal(t, 0, env.Broker.Subscribers())
	store.Close()
}

func TestStore_SubscribeToChanges_BrokerClosed(t *testing.T) {
	env := newEnv(t)
	require.NoError(t, env.Broker.Close())
	store := NewComplaintStore(env.GW)
	assert.Error(t, store.SubscribeToChanges(context.Background()))
}

func TestStore_Details_ServesMergedCacheWithoutBackendRead(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	env.seed(t, "c1", time.Now())
	gw := &faultyGW{Gateway: env.GW}
	store := NewComplaintStore(gw)
	t.Cleanup(store.Close)

	_, _, err := store.Details(ctx, "c1", false)
	require.NoError(t, err)
	require.NoError(t, store.SubscribeToChanges(ctx))

	m, err := store.AddMessage(ctx, "c1", "متى يتم الرد؟", domain.SenderUser)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		c, _ := store.Get("c1")
		return len(c.Messages) == 1
	}, 2*time.Second, 10*time.Millisecond)

	gw.getErr = errors.New("backend offline")
	c, notices, err := store.Details(ctx, " c1 ", false)
	require.NoError(t, err)
	assert.Empty(t, notices)
	require.Len(t, c.Messages, 1)
	assert.Equal(t, m.ID, c.Messages[0].ID)

	_, _, err = store.Details(ctx, "c1", true)
	assert.Error(t, err, "refresh must reload from the backend")
}

func TestStore_Details_ReloadsWhenNotFullyLoaded(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	env.seed(t, "c1", time.Now())
	env.seed(t, "c2", time.Now())

	t.Run("listing merge only", func(t *testing.T) {
		store := NewComplaintStore(env.GW)
		list, err := env.GW.ListComplaints(ctx, gateway.ComplaintQuery{})
		require.NoError(t, err)
		store.MergeComplaints(list)

		gw := &faultyGW{Gateway: env.GW, getErr: errors.New("offline")}
		store.GW = gw
		_, _, err = store.Details(ctx, "c2", false)
		assert.Error(t, err, "a list entry has no thread and must be fetched")
	})

	t.Run("partial load", func(t *testing.T) {
		gw := &faultyGW{Gateway: env.GW, listMsgsErr: errors.New("boom")}
		store := NewComplaintStore(gw)
		_, notices, err := store.Details(ctx, "c1", false)
		require.NoError(t, err)
		require.Len(t, notices, 1)

		gw.listMsgsErr = nil
		_, notices, err = store.Details(ctx, "c1", false)
		require.NoError(t, err)
		assert.Empty(t, notices)
	})

	t.Run("status change reloads the audit trail", func(t *testing.T) {
		store := NewComplaintStore(env.GW)
		c, _, err := store.Details(ctx, "c1", false)
		require.NoError(t, err)
		require.Empty(t, c.ActionLogs)

		require.NoError(t, store.UpdateStatus(ctx, "c1", domain.StatusResolved, "تم الحل"))
		c, _, err = store.Details(ctx, "c1", false)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusResolved, c.Status)
		require.Len(t, c.ActionLogs, 1)
	})
}
