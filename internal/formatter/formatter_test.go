package formatter

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/opexdevelop/mediacache/internal/delivery"
	"github.com/opexdevelop/mediacache/internal/models"
)

func sampleEntries() []models.CacheEntry {
	at := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	return []models.CacheEntry{
		{Key: "yt:dQw4w9WgXcQ:mp3:128", Handle: "handle-1", InsertedAt: at},
		{Key: "spotify:4cOdK2wGLETKBW3PvgPWqT", Handle: "handle-2", InsertedAt: at.Add(time.Minute)},
	}
}

func TestEntriesToCSV(t *testing.T) {
	out, err := EntriesToCSV(sampleEntries())
	if err != nil {
		t.Fatalf("EntriesToCSV returned error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want header plus 2 records", len(lines))
	}
	if lines[0] != "Key,Handle,InsertedAt" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "yt:dQw4w9WgXcQ:mp3:128") {
		t.Errorf("first record = %q", lines[1])
	}
	if !strings.Contains(lines[1], "2026-08-30T12:00:00Z") {
		t.Errorf("timestamp not RFC3339: %q", lines[1])
	}
}

func TestEntriesToText(t *testing.T) {
	out := string(EntriesToText(sampleEntries()))

	if !strings.Contains(out, "Cached artifacts: 2") {
		t.Errorf("missing count header: %q", out)
	}
	if !strings.Contains(out, "1. yt:dQw4w9WgXcQ:mp3:128 -> handle-1") {
		t.Errorf("missing numbered entry: %q", out)
	}
}

func TestEntriesToJSON(t *testing.T) {
	out, err := EntriesToJSON(sampleEntries())
	if err != nil {
		t.Fatalf("EntriesToJSON returned error: %v", err)
	}

	var decoded []map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 2 {
		t.Errorf("entries = %d, want 2", len(decoded))
	}
}

func TestResolveToText(t *testing.T) {
	result := &delivery.ResolveResult{
		Ref:   models.SourceRef{Kind: models.SourceYouTube, ID: "dQw4w9WgXcQ"},
		Key:   "yt:dQw4w9WgXcQ:mp3:128",
		URL:   "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Title: "Some Song",
	}

	out := string(ResolveToText(result))
	for _, want := range []string{"yt", "dQw4w9WgXcQ", "yt:dQw4w9WgXcQ:mp3:128", "Some Song", "https://www.youtube.com/watch?v=dQw4w9WgXcQ"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestDeliverToText(t *testing.T) {
	t.Run("fresh fetch", func(t *testing.T) {
		out := string(DeliverToText(&delivery.DeliverResult{
			Key:      "yt:a:mp3:128",
			Handle:   "h1",
			Filename: "song.mp3",
			Size:     2048,
		}))
		if !strings.Contains(out, "fetched") {
			t.Errorf("output %q missing origin", out)
		}
		if !strings.Contains(out, "song.mp3") {
			t.Errorf("output %q missing filename", out)
		}
		if !strings.Contains(out, "2.0 KiB") {
			t.Errorf("output %q missing human-readable size", out)
		}
	})

	t.Run("cache hit omits filename", func(t *testing.T) {
		out := string(DeliverToText(&delivery.DeliverResult{
			Key:    "yt:a:mp3:128",
			Handle: "h1",
			Cached: true,
		}))
		if !strings.Contains(out, "cache hit") {
			t.Errorf("output %q missing origin", out)
		}
		if strings.Contains(out, "File:") {
			t.Errorf("output %q has filename line for a hit", out)
		}
	})
}

func TestDeliverToJSON(t *testing.T) {
	out, err := DeliverToJSON(&delivery.DeliverResult{Key: "k", Handle: "h", Cached: true})
	if err != nil {
		t.Fatalf("DeliverToJSON returned error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["key"] != "k" || decoded["cached"] != true {
		t.Errorf("decoded = %v", decoded)
	}
}
