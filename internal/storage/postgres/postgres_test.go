package postgres

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/motionlab/kinema/internal/logging"
	"github.com/motionlab/kinema/internal/model"
	"github.com/motionlab/kinema/internal/storage"
	"github.com/motionlab/kinema/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

// newTestDB opens a private in-memory SQLite DB so the GORM paths can be
// exercised without a Postgres server.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return db
}

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	b := New(newTestDB(t), logging.NewSlogManager())
	require.NoError(t, b.Init())
	t.Cleanup(func() { b.Close() })
	return b
}

func TestInit_MigratesSchemaAndSeedsServiceInfo(t *testing.T) {
	b := newTestBackend(t)

	assert.True(t, b.Ready())

	var info model.ServiceInfo
	err := b.DB().First(&info).Error
	require.NoError(t, err)
	assert.Equal(t, "kinema", info.Name)
}

func TestStartRun_AssignsID(t *testing.T) {
	b := newTestBackend(t)

	run := &core.Run{
		SessionID: "sess-1",
		Module:    "ProjectileMotion",
		Inputs:    map[string]any{"velocity": 50.0, "angle": 45.0},
		StartedAt: time.Now(),
	}
	require.NoError(t, b.StartRun(run))
	assert.NotZero(t, run.ID)

	second := &core.Run{SessionID: "sess-2", Module: "WaveVibration", StartedAt: time.Now()}
	require.NoError(t, b.StartRun(second))
	assert.Greater(t, second.ID, run.ID)
}

func TestEndRun_UpdatesRow(t *testing.T) {
	b := newTestBackend(t)

	run := &core.Run{SessionID: "sess-1", Module: "SpringOscillation", StartedAt: time.Now()}
	require.NoError(t, b.StartRun(run))

	ended := time.Now()
	require.NoError(t, b.EndRun(run.ID, ended, 42))

	var stored model.Run
	require.NoError(t, b.DB().First(&stored, run.ID).Error)
	require.NotNil(t, stored.EndedAt)
	assert.Equal(t, uint(42), stored.FrameCount)
}

func TestEndRun_UnknownRun(t *testing.T) {
	b := newTestBackend(t)

	err := b.EndRun(9999, time.Now(), 0)
	assert.Error(t, err)
}

func TestRecordFrames_DrainedToDB(t *testing.T) {
	b := newTestBackend(t)

	run := &core.Run{SessionID: "sess-1", Module: "PendulumMotion", StartedAt: time.Now()}
	require.NoError(t, b.StartRun(run))

	require.NoError(t, b.RecordFrames([]core.Frame{
		{RunID: run.ID, Seq: 1, SimTime: 0.05, Displacement: 0.52, CapturedAt: time.Now()},
		{RunID: run.ID, Seq: 2, SimTime: 0.10, Displacement: 0.51, CapturedAt: time.Now()},
	}))

	// The writer goroutine drains on a 2s cycle; poll rather than sleep a
	// fixed worst case.
	deadline := time.Now().Add(5 * time.Second)
	var count int64
	for time.Now().Before(deadline) {
		b.DB().Model(&model.Frame{}).Where("run_id = ?", run.ID).Count(&count)
		if count == 2 {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	assert.Equal(t, int64(2), count)
}

func TestRecordClassification_DrainedToDB(t *testing.T) {
	b := newTestBackend(t)

	run := &core.Run{SessionID: "sess-1", Module: "SpringOscillation", StartedAt: time.Now()}
	require.NoError(t, b.StartRun(run))

	require.NoError(t, b.RecordClassification(&core.Classification{
		RunID:  run.ID,
		Prompt: "spring with mass 2kg",
		Module: "SpringOscillation",
		Source: "model",
	}))

	deadline := time.Now().Add(5 * time.Second)
	var count int64
	for time.Now().Before(deadline) {
		b.DB().Model(&model.Classification{}).Count(&count)
		if count == 1 {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	require.Equal(t, int64(1), count)

	var stored model.Classification
	require.NoError(t, b.DB().First(&stored).Error)
	require.NotNil(t, stored.RunID)
	assert.Equal(t, run.ID, *stored.RunID)
}
