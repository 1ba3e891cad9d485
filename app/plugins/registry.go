// Package plugins links every built-in backend and lists them by concern.
package plugins

import (
	"github.com/kilianp07/roadside/core/blacklist"
	"github.com/kilianp07/roadside/core/directory"
	coremetrics "github.com/kilianp07/roadside/core/metrics"
	"github.com/kilianp07/roadside/core/notify"
)

// Concern names match the configuration sections that select a backend.
const (
	Directory = "directory"
	Blacklist = "blacklist"
	Notifiers = "notifiers"
	Metrics   = "metrics"
)

// Catalog returns the registered backend names per concern.
func Catalog() map[string][]string {
	return map[string][]string{
		Directory: directory.Types(),
		Blacklist: blacklist.Types(),
		Notifiers: notify.Types(),
		Metrics:   coremetrics.SinkTypes(),
	}
}
