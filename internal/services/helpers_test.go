package services

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/HussamZG/shakaoy-650/internal/domain"
	"github.com/HussamZG/shakaoy-650/internal/gateway"
	"github.com/HussamZG/shakaoy-650/internal/realtime"
	"github.com/HussamZG/shakaoy-650/internal/repo"
	"github.com/HussamZG/shakaoy-650/internal/storage"
)

// testEnv is a real gateway over in-memory SQLite, a temp-dir object store
// and an in-process broker.
type testEnv struct {
	DB      *gorm.DB
	GW      *gateway.Backend
	Broker  *realtime.MemoryBroker
	Objects *storage.LocalStore
	Dir     string
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	dir := t.TempDir()
	objects, err := storage.NewLocalStore(dir, "complaint-attachments", "http://api.test")
	if err != nil {
		t.Fatalf("local store: %v", err)
	}
	broker := realtime.NewMemoryBroker(32)
	t.Cleanup(func() { _ = broker.Close() })

	return &testEnv{DB: db, GW: gateway.New(db, objects, broker), Broker: broker, Objects: objects, Dir: dir}
}

func (e *testEnv) seed(t *testing.T, id string, date time.Time, mut ...func(*domain.Complaint)) *domain.Complaint {
	t.Helper()
	c := &domain.Complaint{
		ID: id, Title: "title " + id, Category: domain.CategoryOperations, Description: "desc " + id,
		Priority: domain.PriorityNormal, Status: domain.StatusPending, Date: date.UTC(),
	}
	for _, f := range mut {
		f(c)
	}
	if err := e.GW.InsertComplaint(context.Background(), c); err != nil {
		t.Fatalf("seed complaint %s: %v", id, err)
	}
	return c
}

func (e *testEnv) count(t *testing.T, model any, where ...any) int64 {
	t.Helper()
	var n int64
	q := e.DB.Model(model)
	if len(where) > 0 {
		q = q.Where(where[0], where[1:]...)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

// objectCount counts files written under the object store root.
func (e *testEnv) objectCount(t *testing.T) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(e.Dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	return n
}

// faultyGW wraps a Gateway and injects failures per operation.
type faultyGW struct {
	gateway.Gateway

	getErr          error
	updateStatusErr error
	insertErr       error
	insertMsgErr    error
	listMsgsErr     error
	listLogsErr     error
	insertLogErr    error
	deleteMsgsErr   error
	uploadErr       error

	uploads int
}

func (f *faultyGW) GetComplaint(ctx context.Context, id string) (*domain.Complaint, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.Gateway.GetComplaint(ctx, id)
}

func (f *faultyGW) UpdateComplaintStatus(ctx context.Context, id string, s domain.Status, at time.Time) error {
	if f.updateStatusErr != nil {
		return f.updateStatusErr
	}
	return f.Gateway.UpdateComplaintStatus(ctx, id, s, at)
}

func (f *faultyGW) InsertComplaint(ctx context.Context, c *domain.Complaint) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	return f.Gateway.InsertComplaint(ctx, c)
}

func (f *faultyGW) InsertMessage(ctx context.Context, m *domain.Message) (*domain.Message, error) {
	if f.insertMsgErr != nil {
		return nil, f.insertMsgErr
	}
	return f.Gateway.InsertMessage(ctx, m)
}

func (f *faultyGW) ListMessages(ctx context.Context, id string, asc bool) ([]domain.Message, error) {
	if f.listMsgsErr != nil {
		return nil, f.listMsgsErr
	}
	return f.Gateway.ListMessages(ctx, id, asc)
}

func (f *faultyGW) ListActionLogs(ctx context.Context, id string, asc bool) ([]domain.ActionLogEntry, error) {
	if f.listLogsErr != nil {
		return nil, f.listLogsErr
	}
	return f.Gateway.ListActionLogs(ctx, id, asc)
}

func (f *faultyGW) InsertActionLog(ctx context.Context, e *domain.ActionLogEntry) error {
	if f.insertLogErr != nil {
		return f.insertLogErr
	}
	return f.Gateway.InsertActionLog(ctx, e)
}

func (f *faultyGW) DeleteMessages(ctx context.Context, id string) (int64, error) {
	if f.deleteMsgsErr != nil {
		return 0, f.deleteMsgsErr
	}
	return f.Gateway.DeleteMessages(ctx, id)
}

func (f *faultyGW) Upload(ctx context.Context, key, ct string, body io.Reader, size int64, opts gateway.UploadOptions) (string, error) {
	f.uploads++
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return f.Gateway.Upload(ctx, key, ct, body, size, opts)
}
