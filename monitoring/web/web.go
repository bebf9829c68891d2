// Package web holds the dashboard page served by the monitor.
package web

import (
	"embed"
	"io/fs"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
)

// DevEnv names the environment variable that makes the monitor serve the
// dashboard from the source tree, so that edits show up without a rebuild.
const DevEnv = "AXIDMA_MONITOR_DEV"

//go:embed dist/*
var dist embed.FS

// Assets returns the dashboard files.
func Assets() http.FileSystem {
	if devMode() {
		dir := sourceDir()
		log.Printf("monitor: serving dashboard from %s", dir)

		return http.Dir(dir)
	}

	sub, err := fs.Sub(dist, "dist")
	if err != nil {
		panic(err)
	}

	return http.FS(sub)
}

func sourceDir() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		panic("monitor: cannot locate the dashboard sources")
	}

	return filepath.Join(filepath.Dir(file), "dist")
}

func devMode() bool {
	on, err := strconv.ParseBool(os.Getenv(DevEnv))

	return err == nil && on
}
