// package formatter renders cache entries and delivery results for display (CSV, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/opexdevelop/mediacache/internal/delivery"
	"github.com/opexdevelop/mediacache/internal/models"
	"github.com/opexdevelop/mediacache/internal/shared"
)

// EntriesToCSV converts cache entries to CSV format with columns: Key, Handle, InsertedAt
func EntriesToCSV(entries []models.CacheEntry) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Key", "Handle", "InsertedAt"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, entry := range entries {
		record := []string{
			entry.Key,
			entry.Handle,
			entry.InsertedAt.Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// EntriesToText converts cache entries to plain text format
func EntriesToText(entries []models.CacheEntry) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Cached artifacts: %d\n\n", len(entries)))
	for i, entry := range entries {
		buf.WriteString(fmt.Sprintf("%d. %s -> %s (%s)\n",
			i+1, entry.Key, entry.Handle, entry.InsertedAt.Format(time.RFC3339)))
	}

	return buf.Bytes()
}

// EntriesToJSON generates a JSON representation of cache entries
func EntriesToJSON(entries []models.CacheEntry) ([]byte, error) {
	return shared.MarshalJSON(entries, true)
}

// ResolveToText renders a resolution result for terminal output
func ResolveToText(result *delivery.ResolveResult) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Source: %s\n", result.Ref.Kind))
	buf.WriteString(fmt.Sprintf("ID:     %s\n", result.Ref.ID))
	buf.WriteString(fmt.Sprintf("Key:    %s\n", result.Key))
	buf.WriteString(fmt.Sprintf("URL:    %s\n", result.URL))
	buf.WriteString(fmt.Sprintf("Title:  %s\n", result.Title))

	return buf.Bytes()
}

// ResolveToJSON generates a JSON representation of a resolution result
func ResolveToJSON(result *delivery.ResolveResult) ([]byte, error) {
	return shared.MarshalJSON(map[string]string{
		"source": string(result.Ref.Kind),
		"id":     result.Ref.ID,
		"key":    result.Key,
		"url":    result.URL,
		"title":  result.Title,
	}, true)
}

// DeliverToText renders a delivery result for terminal output
func DeliverToText(result *delivery.DeliverResult) []byte {
	var buf bytes.Buffer

	origin := "fetched"
	if result.Cached {
		origin = "cache hit"
	}

	buf.WriteString(fmt.Sprintf("Key:    %s\n", result.Key))
	buf.WriteString(fmt.Sprintf("Handle: %s (%s)\n", result.Handle, origin))
	if result.Filename != "" {
		buf.WriteString(fmt.Sprintf("File:   %s\n", result.Filename))
	}
	if result.Size > 0 {
		buf.WriteString(fmt.Sprintf("Size:   %s\n", shared.FormatBytes(result.Size)))
	}

	return buf.Bytes()
}

// DeliverToJSON generates a JSON representation of a delivery result
func DeliverToJSON(result *delivery.DeliverResult) ([]byte, error) {
	return shared.MarshalJSON(result, true)
}
