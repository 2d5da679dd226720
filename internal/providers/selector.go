package providers

import (
	"sort"

	"github.com/opexdevelop/mediacache/internal/models"
)

// Bitrate targets at or below this are treated as storage-conscious: the
// nearest candidate in either direction wins. Above it the selector never
// downgrades below the request unless nothing higher exists.
const lowBitrateCutoff = 100

// SelectFormat picks the best candidate for the requested kind and quality.
//
// Audio: candidates are sorted ascending by bitrate. A target ≤100kbps gets
// the minimum absolute distance (earlier candidate wins ties); a higher
// target gets the smallest candidate at or above it, falling back to the
// maximum available when none reaches the target.
//
// Video: a single candidate is returned as-is; otherwise the minimum
// absolute resolution distance wins (earlier candidate on ties).
//
// Returns nil when no candidate of the requested kind exists.
func SelectFormat(candidates []models.FormatCandidate, kind models.MediaKind, quality string) *models.FormatCandidate {
	target := models.QualityValue(quality)

	switch kind {
	case models.KindAudio:
		return selectAudio(candidates, target)
	case models.KindVideo:
		return selectVideo(candidates, target)
	}
	return nil
}

func selectAudio(candidates []models.FormatCandidate, target int) *models.FormatCandidate {
	audio := filterKind(candidates, models.KindAudio)
	if len(audio) == 0 {
		return nil
	}

	sort.SliceStable(audio, func(i, j int) bool {
		return audio[i].BitrateKbps < audio[j].BitrateKbps
	})

	if target <= lowBitrateCutoff {
		best := 0
		for i := 1; i < len(audio); i++ {
			if absDiff(audio[i].BitrateKbps, target) < absDiff(audio[best].BitrateKbps, target) {
				best = i
			}
		}
		return &audio[best]
	}

	for i := range audio {
		if audio[i].BitrateKbps >= target {
			return &audio[i]
		}
	}

	// Nothing at or above the request, take the best available.
	return &audio[len(audio)-1]
}

func selectVideo(candidates []models.FormatCandidate, target int) *models.FormatCandidate {
	video := filterKind(candidates, models.KindVideo)
	if len(video) == 0 {
		return nil
	}
	if len(video) == 1 {
		return &video[0]
	}

	best := 0
	for i := 1; i < len(video); i++ {
		if absDiff(video[i].ResolutionP, target) < absDiff(video[best].ResolutionP, target) {
			best = i
		}
	}
	return &video[best]
}

func filterKind(candidates []models.FormatCandidate, kind models.MediaKind) []models.FormatCandidate {
	var out []models.FormatCandidate
	for _, c := range candidates {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
