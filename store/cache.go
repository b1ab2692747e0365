package store

import (
	"sync"

	"github.com/fwojciec/segchat"
)

// CachedDetection pairs a detection result with the source image it was
// produced from.
type CachedDetection struct {
	Detection segchat.Detection
	ImagePath string
}

// DetectionCache maps a session to its most recent detection result so a
// later confirmation step can reuse it without re-running detection. At
// most one entry per session; a new detect overwrites unconditionally.
//
// Entries are deliberately retained after a successful confirmation so
// the user can confirm a different subset without re-detecting; Clear is
// available but the orchestration never calls it.
type DetectionCache struct {
	mu      sync.RWMutex
	entries map[string]CachedDetection
}

// NewDetectionCache creates an empty DetectionCache.
func NewDetectionCache() *DetectionCache {
	return &DetectionCache{entries: make(map[string]CachedDetection)}
}

// Store records the most recent detection for the session, overwriting
// any prior entry.
func (c *DetectionCache) Store(sessionID string, det segchat.Detection, imagePath string) {
	c.mu.Lock()
	c.entries[sessionID] = CachedDetection{Detection: det, ImagePath: imagePath}
	c.mu.Unlock()
}

// Select returns the cached subset at the given indices together with
// the source image path. Index semantics, including the length-based
// select-all shortcut, are those of Detection.Select. A session with no
// cached detection fails with ErrCacheMiss: the caller must detect first.
func (c *DetectionCache) Select(sessionID string, indices []int) (segchat.Detection, string, error) {
	c.mu.RLock()
	e, ok := c.entries[sessionID]
	c.mu.RUnlock()
	if !ok {
		return segchat.Detection{}, "", segchat.ErrCacheMiss
	}
	det, err := e.Detection.Select(indices)
	if err != nil {
		return segchat.Detection{}, "", err
	}
	return det, e.ImagePath, nil
}

// Clear drops the cached detection for the session, if any.
func (c *DetectionCache) Clear(sessionID string) {
	c.mu.Lock()
	delete(c.entries, sessionID)
	c.mu.Unlock()
}
