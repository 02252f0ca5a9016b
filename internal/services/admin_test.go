package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HussamZG/shakaoy-650/internal/domain"
)

func newAdmin(env *testEnv) (*AdminService, *ComplaintStore) {
	store := NewComplaintStore(env.GW)
	return NewAdminService(env.GW, store), store
}

func TestAdmin_ListFiltersAndPages(t *testing.T) {
	env := newEnv(t)
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		env.seed(t, id, base.Add(time.Duration(i)*time.Hour), func(c *domain.Complaint) {
			if id == "b" || id == "d" {
				c.Status = domain.StatusResolved
			}
		})
	}
	svc, store := newAdmin(env)
	ctx := context.Background()

	res, err := svc.List(ctx, ListQuery{PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Total)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "e", res.Items[0].ID)
	assert.Equal(t, "d", res.Items[1].ID)
	assert.Equal(t, 2, store.Len())

	res, err = svc.List(ctx, ListQuery{Page: 3, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "a", res.Items[0].ID)

	res, err = svc.List(ctx, ListQuery{Status: "resolved"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Total)

	res, err = svc.List(ctx, ListQuery{Page: 9})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Equal(t, int64(5), res.Total)

	res, err = svc.List(ctx, ListQuery{PageSize: 1000})
	require.NoError(t, err)
	assert.Equal(t, maxPageSize, res.PageSize)
}

func TestAdmin_ListLegacyStatusIsDistinct(t *testing.T) {
	env := newEnv(t)
	env.seed(t, "a", time.Now(), func(c *domain.Complaint) { c.Status = domain.StatusInProgress })
	env.seed(t, "b", time.Now(), func(c *domain.Complaint) { c.Status = domain.StatusInProgressLegacy })
	svc, _ := newAdmin(env)

	res, err := svc.List(context.Background(), ListQuery{Status: "in-progress"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "b", res.Items[0].ID)

	_, err = svc.List(context.Background(), ListQuery{Status: "archived"})
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "status", fe.Field)
}

func TestAdmin_ListSearchRanks(t *testing.T) {
	env := newEnv(t)
	now := time.Now()
	env.seed(t, "amb", now, func(c *domain.Complaint) {
		c.Title = "تأخر سيارة الإسعاف"
		c.Description = "تأخرت سيارة الإسعاف ساعة كاملة عن الموعد"
	})
	env.seed(t, "fee", now.Add(time.Minute), func(c *domain.Complaint) {
		c.Title = "رسوم مرتفعة"
		c.Description = "الرسوم الإدارية مرتفعة جدا"
	})
	svc, _ := newAdmin(env)

	res, err := svc.List(context.Background(), ListQuery{Q: "سيارة الاسعاف"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "amb", res.Items[0].ID)
	assert.Equal(t, int64(1), res.Total)
}

func TestAdmin_Stats(t *testing.T) {
	env := newEnv(t)
	statuses := []domain.Status{
		domain.StatusPending, domain.StatusPending, domain.StatusInProgress,
		domain.StatusInProgressLegacy, domain.StatusResolved, domain.StatusClosed,
	}
	for i, s := range statuses {
		s := s
		env.seed(t, string(rune('a'+i)), time.Now(), func(c *domain.Complaint) { c.Status = s })
	}
	svc, _ := newAdmin(env)

	st, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 6, Pending: 2, InProgress: 1, InProgressLegacy: 1, Resolved: 1, Closed: 1}, *st)
}

func TestAdmin_DeleteCascadesAndForgets(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	sub := NewSubmissionService(env.GW)
	in := validInput()
	in.Attachment = fileAttachment("x.png", "image/png", pngBytes)
	res, err := sub.Submit(ctx, in)
	require.NoError(t, err)
	id := res.Complaint.ID
	require.Equal(t, 1, env.objectCount(t))

	svc, store := newAdmin(env)
	_, _, err = store.FetchDetails(ctx, id)
	require.NoError(t, err)
	require.NoError(t, store.UpdateStatus(ctx, id, domain.StatusClosed, ""))

	require.NoError(t, svc.Delete(ctx, id))
	assert.Zero(t, env.count(t, &domain.Complaint{}))
	assert.Zero(t, env.count(t, &domain.Message{}))
	assert.Zero(t, env.count(t, &domain.ActionLogEntry{}))
	assert.Zero(t, env.objectCount(t))
	_, ok := store.Get(id)
	assert.False(t, ok)

	assert.ErrorIs(t, svc.Delete(ctx, id), ErrComplaintNotFound)
}

func TestAdmin_DeleteMessagesFailureKeepsRow(t *testing.T) {
	env := newEnv(t)
	env.seed(t, "c1", time.Now())
	store := NewComplaintStore(env.GW)
	svc := NewAdminService(&faultyGW{Gateway: env.GW, deleteMsgsErr: errors.New("locked")}, store)

	err := svc.Delete(context.Background(), "c1")
	assert.ErrorIs(t, err, ErrDeleteMessages)
	assert.Equal(t, int64(1), env.count(t, &domain.Complaint{}))
}

func TestAdmin_ActionLogsNewestFirst(t *testing.T) {
	env := newEnv(t)
	base := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	env.seed(t, "c1", base)
	for i := 1; i <= 3; i++ {
		require.NoError(t, env.GW.InsertActionLog(context.Background(), &domain.ActionLogEntry{
			ComplaintID: "c1", ActionType: domain.ActionStatusChange,
			Details: strings.Repeat("x", i), Timestamp: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	svc, _ := newAdmin(env)

	logs, err := svc.ActionLogs(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, "xxx", logs[0].Details)
	assert.Equal(t, "x", logs[2].Details)
}

func TestAdmin_ActionLogsFallBackToMessages(t *testing.T) {
	env := newEnv(t)
	base := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	env.seed(t, "c1", base)
	for _, m := range []domain.Message{msgAt("m1", "c1", base.Add(time.Minute)), msgAt("m2", "c1", base.Add(2*time.Minute))} {
		m := m
		_, err := env.GW.InsertMessage(context.Background(), &m)
		require.NoError(t, err)
	}
	gw := &faultyGW{Gateway: env.GW, listLogsErr: errors.New("relation does not exist")}
	svc := NewAdminService(gw, NewComplaintStore(gw))

	logs, err := svc.ActionLogs(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "m2", logs[0].ID)
	assert.Equal(t, domain.ActionMessage, logs[0].ActionType)
	assert.Equal(t, "text m2", logs[0].Details)
	require.NotNil(t, logs[0].Sender)
	assert.Equal(t, domain.SenderUser, *logs[0].Sender)
}

func TestAdmin_VersionChangesOnWrite(t *testing.T) {
	env := newEnv(t)
	env.seed(t, "c1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	svc, store := newAdmin(env)
	ctx := context.Background()

	n1, t1, err := svc.Version(ctx, ListQuery{})
	require.NoError(t, err)
	require.NoError(t, store.UpdateStatus(ctx, "c1", domain.StatusResolved, ""))
	n2, t2, err := svc.Version(ctx, ListQuery{})
	require.NoError(t, err)

	assert.Equal(t, n1, n2)
	require.NotNil(t, t1)
	require.NotNil(t, t2)
	assert.True(t, t2.After(*t1))
}

func TestAttachmentKey(t *testing.T) {
	assert.Equal(t, "abc.png", attachmentKey("http://api.test/attachments/abc.png"))
	assert.Equal(t, "k.pdf", attachmentKey("https://bucket.s3.amazonaws.com/complaint-attachments/k.pdf"))
	assert.Equal(t, "", attachmentKey("http://host"))
}
