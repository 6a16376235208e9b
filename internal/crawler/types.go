package crawler

import "time"

// RawEntry is one unnormalized feed tile as reported by an extraction
// strategy. Field names mirror the JSON produced by the strategy scripts.
type RawEntry struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	ChannelName   string `json:"channelName"`
	ChannelURL    string `json:"channelUrl"`
	ChannelID     string `json:"channelId"`
	ChannelText   string `json:"channelText"`
	ViewsText     string `json:"views"`
	PublishedText string `json:"publishDate"`
	ThumbnailURL  string `json:"thumbnailUrl"`
	DurationText  string `json:"duration"`
}

// Entry is a fully normalized video record ready for the store.
type Entry struct {
	ID        string
	ChannelID string
	Title     string
	URL       string
	Thumbnail string
	Views     int64
	Published time.Time
	Duration  *int64
}

// Resolution is the result of a secondary channel lookup.
type Resolution struct {
	ChannelID   string
	ChannelURL  string
	ChannelName string
}

// UpsertResult reports what the store did with an entry.
type UpsertResult int

// Upsert outcomes.
const (
	UpsertInserted UpsertResult = iota
	UpsertUpdated
)

// Summary accumulates the outcome of one crawl session. All non-fatal
// conditions end up here rather than aborting the run.
type Summary struct {
	Inserted    int    `json:"inserted"`
	Updated     int    `json:"updated"`
	Rejected    int    `json:"rejected"`
	OutOfWindow int    `json:"out_of_window"`
	Skipped     int    `json:"skipped"`
	Pruned      int64  `json:"pruned"`
	Iterations  int    `json:"iterations"`
	StopReason  string `json:"stop_reason"`
}

// phase labels the controller state machine for logging.
type phase string

const (
	phaseIdle        phase = "idle"
	phaseLoading     phase = "loading"
	phaseExtracting  phase = "extracting"
	phaseResolving   phase = "resolving"
	phaseIngesting   phase = "ingesting"
	phaseScrollCheck phase = "scroll_check"
	phaseTerminated  phase = "terminated"
)

// session is the ephemeral per-run state: the dedup set plus the consecutive
// counters backing the termination predicates. Discarded when Run returns.
type session struct {
	seen         map[string]struct{}
	emptyStreak  int
	staleStreak  int
	heightStreak int
	oldEntries   int
}

func newSession() *session {
	return &session{seen: make(map[string]struct{})}
}
