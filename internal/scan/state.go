package scan

import (
	"sync"

	"github.com/sells-group/placescan/internal/model"
)

// Phase names a coordinator state. Only idle, completed, and error are
// reachable at rest; scanning and backgrounded relabel each other as the app
// moves between foreground and background.
type Phase string

const (
	PhaseIdle                 Phase = "idle"
	PhaseRequestingPermission Phase = "requesting_permission"
	PhaseCollecting           Phase = "collecting"
	PhaseScanning             Phase = "scanning"
	PhaseBackgrounded         Phase = "backgrounded"
	PhaseCompleted            Phase = "completed"
	PhaseError                Phase = "error"
)

// State is one emission of the coordinator's state machine. Consumers (UI
// layers, the serve endpoint) observe the scan exclusively through these
// values; no threading assumptions are baked in.
type State struct {
	Phase Phase `json:"phase"`

	// collecting
	PhotosProcessed int `json:"photos_processed,omitempty"`

	// scanning / backgrounded
	ClustersProcessed int `json:"clusters_processed,omitempty"`
	TotalClusters     int `json:"total_clusters,omitempty"`
	LocationsFound    int `json:"locations_found,omitempty"`

	// completed
	Locations      []model.DiscoveredLocation `json:"locations,omitempty"`
	TotalFound     int                        `json:"total_found,omitempty"`
	AlreadyVisited int                        `json:"already_visited,omitempty"`
	Stats          *model.ImportStatistics    `json:"stats,omitempty"`

	// error
	Message string `json:"message,omitempty"`
}

// broadcaster fans out states to subscribers. Slow subscribers lose
// intermediate states rather than blocking the scan: each channel is
// buffered and sends are non-blocking.
type broadcaster struct {
	mu   sync.Mutex
	subs []chan State
	last State
}

func newBroadcaster() *broadcaster {
	return &broadcaster{last: State{Phase: PhaseIdle}}
}

// subscribe registers a new listener. The current state is delivered first
// so late subscribers see where the scan is.
func (b *broadcaster) subscribe() <-chan State {
	ch := make(chan State, 16)
	b.mu.Lock()
	ch <- b.last
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	return ch
}

func (b *broadcaster) publish(s State) {
	b.mu.Lock()
	b.last = s
	for _, ch := range b.subs {
		select {
		case ch <- s:
		default:
		}
	}
	b.mu.Unlock()
}

// current returns the most recently published state.
func (b *broadcaster) current() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}
