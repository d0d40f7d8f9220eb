// Package gormstorage implements the storage.Backend interface on top of
// GORM with internal queues and a background DB writer goroutine. The
// sqlite and postgres backends compose it with dialect-specific setup.
package gormstorage

import (
	"fmt"
	"sync"
	"time"

	"github.com/motionlab/kinema/internal/geo"
	"github.com/motionlab/kinema/internal/logging"
	"github.com/motionlab/kinema/internal/model"
	"github.com/motionlab/kinema/internal/model/convert"
	"github.com/motionlab/kinema/internal/queue"
	"github.com/motionlab/kinema/pkg/core"

	"gorm.io/gorm"
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB         *gorm.DB
	LogManager *logging.SlogManager
}

// queues holds the write queues for batch DB insertion. Runs are not
// queued; StartRun inserts synchronously to assign the run ID.
type queues struct {
	Frames          *queue.Queue[model.Frame]
	Classifications *queue.Queue[model.Classification]
	Performances    *queue.Queue[model.Performance]
}

func newQueues() *queues {
	return &queues{
		Frames:          queue.New[model.Frame](),
		Classifications: queue.New[model.Classification](),
		Performances:    queue.New[model.Performance](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps     Dependencies
	queues   *queues
	stopChan chan struct{}
	dbReady  bool

	writeInterval time.Duration

	mu                  sync.Mutex
	lastDBWriteDuration time.Duration
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	return &Backend{
		deps:          deps,
		writeInterval: 2 * time.Second,
	}
}

// DB exposes the underlying connection for composing backends and tests.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// SetDB injects the database connection. Must be called before Init when
// the connection is opened lazily by a composing backend.
func (b *Backend) SetDB(db *gorm.DB) {
	b.deps.DB = db
}

// Init creates internal queues, runs schema migration, and starts the DB
// writer goroutine. Callers that compose this backend must inject a DB
// via Dependencies before calling Init.
func (b *Backend) Init() error {
	b.queues = newQueues()
	b.stopChan = make(chan struct{})

	if b.deps.DB != nil {
		if err := b.setupDB(); err != nil {
			return fmt.Errorf("failed to setup DB: %w", err)
		}
		b.dbReady = true
	}

	b.startDBWriters()
	return nil
}

// setupDB migrates tables and seeds the service info row if absent.
func (b *Backend) setupDB() error {
	db := b.deps.DB
	log := b.deps.LogManager

	if !db.Migrator().HasTable(&model.ServiceInfo{}) {
		if err := db.AutoMigrate(&model.ServiceInfo{}); err != nil {
			log.WriteLog("setupDB", fmt.Sprintf("Failed to create service_infos table: %s", err), "ERROR")
			return fmt.Errorf("failed to auto-migrate ServiceInfo: %w", err)
		}
		if err := db.Create(&model.ServiceInfo{
			Name:        "kinema",
			Description: "Educational physics simulation service",
			Website:     "https://github.com/motionlab/kinema",
		}).Error; err != nil {
			return fmt.Errorf("failed to create service_infos entry: %w", err)
		}
	}

	if db.Name() == "postgres" {
		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS postgis;`).Error; err != nil {
			return fmt.Errorf("failed to create PostGIS extension: %w", err)
		}
		log.WriteLog("setupDB", "PostGIS extension created", "INFO")
	}

	log.WriteLog("setupDB", "Migrating schema", "INFO")
	if err := db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.WriteLog("setupDB", "Database setup complete", "INFO")
	return nil
}

// Close stops the DB writer goroutine.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
	}
	return nil
}

// Ready reports whether the database connection is usable.
func (b *Backend) Ready() bool {
	return b.dbReady
}

// StartRun inserts a run synchronously (not queued) because runs are
// low-volume and need immediate ID assignment for the run index.
func (b *Backend) StartRun(r *core.Run) error {
	if b.deps.DB == nil {
		return nil
	}

	gormObj := convert.RunToModel(r)
	gormObj.ID = 0

	if r.Scene != nil {
		// The anchor is persisted as 3857 geometry; the lat/lon fields
		// themselves are not columns.
		scene := model.Scene{
			Name:       r.Scene.Name,
			Latitude:   r.Scene.OriginLat,
			Longitude:  r.Scene.OriginLon,
			Location:   geo.WebMercator(r.Scene.OriginLon, r.Scene.OriginLat),
			AzimuthDeg: r.Scene.AzimuthDeg,
		}
		if _, err := scene.GetOrInsert(b.deps.DB); err != nil {
			return fmt.Errorf("failed to get or insert scene: %w", err)
		}
		gormObj.SceneID = &scene.ID
	}

	if err := b.deps.DB.Create(&gormObj).Error; err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	r.ID = gormObj.ID
	return nil
}

// EndRun stamps the run's end time and frame count synchronously.
func (b *Backend) EndRun(runID uint, endedAt time.Time, frames uint) error {
	if b.deps.DB == nil {
		return nil
	}

	result := b.deps.DB.Model(&model.Run{}).Where("id = ?", runID).Updates(map[string]any{
		"ended_at":    endedAt,
		"frame_count": frames,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to end run: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("unknown run id %d", runID)
	}
	return nil
}

// RecordFrames converts and queues a batch of frames.
func (b *Backend) RecordFrames(frames []core.Frame) error {
	for _, f := range frames {
		b.queues.Frames.Push(convert.FrameToModel(f))
	}
	return nil
}

// RecordClassification converts and queues a classifier decision.
func (b *Backend) RecordClassification(c *core.Classification) error {
	b.queues.Classifications.Push(convert.ClassificationToModel(c))
	return nil
}

// RecordPerformance converts and queues a service health sample.
func (b *Backend) RecordPerformance(p *core.Performance) error {
	b.queues.Performances.Push(convert.PerformanceToModel(p))
	return nil
}

// GetLastDBWriteDuration returns the duration of the last queue drain.
func (b *Backend) GetLastDBWriteDuration() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastDBWriteDuration
}

func (b *Backend) setLastDBWriteDuration(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastDBWriteDuration = d
}

// writeQueue writes all items from a queue to the database in a transaction.
// On failure the items are requeued for the next cycle.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log func(string, string, string)) {
	if q.Empty() {
		return
	}

	tx := db.Begin()
	items := q.GetAndEmpty()
	if err := tx.Create(&items).Error; err != nil {
		log(":DB:WRITER:", fmt.Sprintf("Error creating %s: %v", name, err), "ERROR")
		tx.Rollback()
		q.Push(items...)
		return
	}

	tx.Commit()
}

// startDBWriters starts the background goroutine that periodically drains
// queues into the DB.
func (b *Backend) startDBWriters() {
	log := b.deps.LogManager.WriteLog

	go func() {
		for {
			select {
			case <-b.stopChan:
				return
			default:
			}

			if !b.dbReady {
				time.Sleep(1 * time.Second)
				continue
			}

			start := time.Now()

			writeQueue(b.deps.DB, b.queues.Frames, "frames", log)
			writeQueue(b.deps.DB, b.queues.Classifications, "classifications", log)
			writeQueue(b.deps.DB, b.queues.Performances, "performances", log)

			b.setLastDBWriteDuration(time.Since(start))

			time.Sleep(b.writeInterval)
		}
	}()
}

// QueueLengths reports the pending item counts per write queue.
func (b *Backend) QueueLengths() (frames, classifications, performances int) {
	if b.queues == nil {
		return 0, 0, 0
	}
	return b.queues.Frames.Len(), b.queues.Classifications.Len(), b.queues.Performances.Len()
}
