package main

import (
	"fmt"
	"strings"

	"github.com/motionlab/kinema/internal/config"
	"github.com/motionlab/kinema/internal/storage"
	"github.com/motionlab/kinema/internal/storage/memory"
	pgstorage "github.com/motionlab/kinema/internal/storage/postgres"
	sqlitestorage "github.com/motionlab/kinema/internal/storage/sqlite"
	wsstorage "github.com/motionlab/kinema/internal/storage/websocket"
)

func createStorageBackend(storageCfg config.StorageConfig) (storage.Backend, error) {
	switch storageCfg.Type {
	case "postgres":
		logger.Info("Postgres storage backend selected")
		return pgstorage.New(nil, slogManager), nil

	case "sqlite":
		backend, err := sqlitestorage.New(storageCfg.SQLite, slogManager)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		logger.Info("SQLite storage backend selected", "dumpPath", storageCfg.SQLite.Path)
		return backend, nil

	case "websocket":
		wsCfg := storageCfg.Websocket
		wsCfg.URL = httpToWS(wsCfg.URL)
		logger.Info("WebSocket storage backend selected", "url", wsCfg.URL)
		return wsstorage.New(wsCfg), nil

	case "memory", "":
		logger.Info("Memory storage backend selected", "outputDir", storageCfg.Memory.OutputDir)
		return memory.New(storageCfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL. Already-ws URLs
// pass through unchanged.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
