// Package ui implements terminal interfaces using bubbletea's Elm architecture.
//
// Two small models cover the interactive surfaces:
//  1. [FetchModel] : Spinner plus phase log while an artifact is fetched and cached
//  2. [BrowseModel] : Scrollable list of cached artifacts
//
// Both implement bubbletea's standard Init/Update/View pattern. Fetch progress
// flows through a channel from the delivery engine, providing non-blocking
// status reporting during downloads.
package ui
