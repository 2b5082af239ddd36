package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionAnswersKey returns the cache key for a session's write-through answer replica.
func (r *CacheKeyStruct) SessionAnswersKey(sessionID string) string {
	return fmt.Sprintf("session:%s:answers", sessionID)
}

// SessionMetaKey returns the cache key for a session's metadata hash
// (bank id, deadline, duration). Used for crash recovery and sweeping.
func (r *CacheKeyStruct) SessionMetaKey(sessionID string) string {
	return fmt.Sprintf("session:%s:meta", sessionID)
}

// ActiveSessionsKey returns the key of the set holding all sessions with a
// recovery replica that has not been finalized yet.
func (r *CacheKeyStruct) ActiveSessionsKey() string {
	return "sessions:active"
}

// BankPayloadKey returns the cache key for a question bank's full payload.
func (r *CacheKeyStruct) BankPayloadKey(bankID string) string {
	return fmt.Sprintf("bank:%s:payload", bankID)
}

var CacheKey = NewCacheKeyStruct()
