package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionStartKey returns the cache key for a session's start time (Unix
// seconds). Read on every state fetch with the session row as fallback;
// PostgreSQL remains the source of truth.
func (r *CacheKeyStruct) SessionStartKey(sessionID string) string {
	return fmt.Sprintf("session:%s:started_at", sessionID)
}

// AssessmentEventsChannel returns the Redis PubSub channel carrying live
// session events for an assessment (monitor stream).
func (r *CacheKeyStruct) AssessmentEventsChannel(assessmentID string) string {
	return fmt.Sprintf("assessment:%s:events", assessmentID)
}

var CacheKey = NewCacheKeyStruct()
