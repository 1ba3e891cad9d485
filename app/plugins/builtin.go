package plugins

// Infra packages register their backends from init.
import (
	_ "github.com/kilianp07/roadside/infra/blacklist"
	_ "github.com/kilianp07/roadside/infra/directory"
	_ "github.com/kilianp07/roadside/infra/metrics"
	_ "github.com/kilianp07/roadside/infra/notify"
)
