package main

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/motionlab/kinema/internal/api"
	"github.com/motionlab/kinema/internal/config"
	"github.com/motionlab/kinema/internal/database"
	"github.com/motionlab/kinema/internal/geo"
	"github.com/motionlab/kinema/internal/model"
	"github.com/motionlab/kinema/internal/model/convert"
	"github.com/motionlab/kinema/internal/util"
	"github.com/motionlab/kinema/pkg/core"
)

var (
	exportUpload bool
	exportDir    string
	exportOrigin string
)

var exportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Export a recorded run as gzipped JSON",
	Long: `export assembles a completed run from the configured database backend
into a single gzipped JSON recording, including its frames, the
classification that created it, and a WKT ground track for anchored
projectile runs.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().BoolVar(&exportUpload, "upload", false, "upload the export to the archive service")
	exportCmd.Flags().StringVar(&exportDir, "dir", "", "output directory (defaults to storage.memory.outputDir)")
	exportCmd.Flags().StringVar(&exportOrigin, "origin", "", `geodetic anchor "lat,lon[,azimuthDeg]" overriding the run's recorded scene`)
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	runID, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid run id %q", args[0])
	}

	db, err := openExportDB()
	if err != nil {
		return err
	}

	rec, err := loadRecording(db, uint(runID))
	if err != nil {
		return err
	}

	if exportOrigin != "" {
		scene, err := geo.OriginFromString(exportOrigin)
		if err != nil {
			return fmt.Errorf("invalid --origin %q: %w", exportOrigin, err)
		}
		scene.Name = config.GetString("geo.name")
		rec.Run.Scene = &scene
		rec.TrackWKT = geo.NewProjector(rec.Run.Scene).TrackWKT(rec.Frames)
	}

	dir := util.FirstNonEmpty(exportDir, config.GetString("storage.memory.outputDir"))
	path, err := writeRecording(rec, dir)
	if err != nil {
		return err
	}
	logger.Info("Wrote recording", "path", path, "frames", len(rec.Frames))
	fmt.Fprintln(cmd.OutOrStdout(), path)

	if exportUpload {
		client := api.New(config.GetString("archive.url"), config.GetString("archive.apiKey"))
		if err := client.Healthcheck(); err != nil {
			return fmt.Errorf("archive service unreachable: %w", err)
		}
		meta := core.UploadMetadata{
			Filename: filepath.Base(path),
			Module:   rec.Run.Module,
			Frames:   rec.Run.Frames,
		}
		if err := client.Upload(path, meta); err != nil {
			return fmt.Errorf("upload failed: %w", err)
		}
		logger.Info("Uploaded recording", "filename", meta.Filename)
	}
	return nil
}

// openExportDB connects to the run database. Memory-backed recordings
// are already written to disk when the run ends, so export only serves
// the database backends.
func openExportDB() (*gorm.DB, error) {
	storageCfg := config.GetStorageConfig()
	switch storageCfg.Type {
	case "postgres":
		return database.GetPostgresDBStandalone()
	case "sqlite":
		if storageCfg.SQLite.Path == "" {
			return nil, errors.New("storage.sqlite.path is not set")
		}
		return database.GetSqliteDBStandalone(storageCfg.SQLite.Path)
	default:
		return nil, fmt.Errorf("export requires a sqlite or postgres backend, storage.type is %q", storageCfg.Type)
	}
}

func loadRecording(db *gorm.DB, runID uint) (core.Recording, error) {
	var run model.Run
	if err := db.Preload("Scene").First(&run, runID).Error; err != nil {
		return core.Recording{}, fmt.Errorf("run %d not found: %w", runID, err)
	}

	var frames []model.Frame
	err := db.Where("run_id = ?", runID).Order("seq ASC").Find(&frames).Error
	if err != nil {
		return core.Recording{}, fmt.Errorf("error loading frames: %w", err)
	}

	rec := core.Recording{
		Run:    convert.RunToCore(run),
		Frames: make([]core.Frame, 0, len(frames)),
	}
	for _, f := range frames {
		rec.Frames = append(rec.Frames, convert.FrameToCore(f))
	}

	var cls model.Classification
	err = db.Where("run_id = ?", runID).Order("created_at ASC").First(&cls).Error
	switch {
	case err == nil:
		c := convert.ClassificationToCore(cls)
		rec.Classification = &c
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return core.Recording{}, fmt.Errorf("error loading classification: %w", err)
	}

	rec.TrackWKT = geo.NewProjector(rec.Run.Scene).TrackWKT(rec.Frames)
	return rec, nil
}

func writeRecording(rec core.Recording, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("error creating output dir: %w", err)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("error marshalling recording: %w", err)
	}

	name := fmt.Sprintf("%s_run%d_%s.json.gz",
		rec.Run.Module, rec.Run.ID, rec.Run.StartedAt.Format("20060102_150405"))
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("error creating file: %w", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	if _, err := gz.Write(data); err != nil {
		return "", fmt.Errorf("error writing gzip: %w", err)
	}
	if err := gz.Close(); err != nil {
		return "", fmt.Errorf("error finishing gzip: %w", err)
	}
	return path, nil
}
