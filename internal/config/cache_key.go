package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionEventCountKey returns the cache key for a session's proctoring event
// counter of a given type.
func (r *CacheKeyStruct) SessionEventCountKey(sessionID, eventType string) string {
	return fmt.Sprintf("session:%s:events:%s", sessionID, eventType)
}

// AdvisorCacheKey returns the cache key for a cached tutoring explanation.
func (r *CacheKeyStruct) AdvisorCacheKey(questionID, submittedOption string) string {
	if submittedOption == "" {
		submittedOption = "_"
	}
	return fmt.Sprintf("advisor:%s:%s", questionID, submittedOption)
}

var CacheKey = NewCacheKeyStruct()
