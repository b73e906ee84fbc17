package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// CurrentRegPeriodKey returns the cache key holding the upcoming or open registration period.
func (r *CacheKeyStruct) CurrentRegPeriodKey() string {
	return "registration:period:current"
}

// StudentEnrollLockKey returns the key used to serialize one student's batch requests.
func (r *CacheKeyStruct) StudentEnrollLockKey(studentID int) string {
	return fmt.Sprintf("student:%d:enroll_lock", studentID)
}

var CacheKey = NewCacheKeyStruct()
