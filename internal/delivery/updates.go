package delivery

import "fmt"

// ProgressUpdate represents a progress event during a delivery.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Delivery phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Delivery phase enumeration
type Phase int

const (
	ParseSource Phase = iota
	CheckCache
	CacheHit
	Enqueue
	Download
	Upload
	Record
)

func (p Phase) String() string {
	switch p {
	case ParseSource:
		return "parse_source"
	case CheckCache:
		return "check_cache"
	case CacheHit:
		return "cache_hit"
	case Enqueue:
		return "enqueue"
	case Download:
		return "download"
	case Upload:
		return "upload"
	case Record:
		return "record"
	default:
		return ""
	}
}

func checkCacheUpdate(key string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CheckCache,
		Message: fmt.Sprintf("Checking cache for %s...", key),
	}
}

func cacheHitUpdate(key, handle string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CacheHit,
		Message: fmt.Sprintf("Cache hit: %s", key),
		Data:    handle,
	}
}

func enqueueUpdate(provider string, waiting int) ProgressUpdate {
	if waiting > 0 {
		return ProgressUpdate{
			Phase:   Enqueue,
			Message: fmt.Sprintf("Queued behind %d download(s)...", waiting),
		}
	}
	return ProgressUpdate{
		Phase:   Enqueue,
		Message: fmt.Sprintf("Requesting download from %s...", provider),
	}
}

func downloadUpdate(filename string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Download,
		Message: fmt.Sprintf("Downloading %s...", filename),
	}
}

func uploadUpdate(filename string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Upload,
		Message: fmt.Sprintf("Uploading %s to storage...", filename),
	}
}

func recordUpdate(key, handle string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Record,
		Message: fmt.Sprintf("Cached %s", key),
		Data:    handle,
	}
}
