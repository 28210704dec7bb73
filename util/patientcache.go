package util

import (
	"container/list"
	"sync"

	"github.com/lmontagna/fisioagenda/model"
	"gorm.io/gorm"
)

// LRU cache for patientID -> display name, so audit messages for visit and
// deposit mutations don't hit the patients table on every request.
type patientEntry struct {
	patientID uint
	name      string
}

type patientLRU struct {
	mu       sync.Mutex
	ll       *list.List
	cache    map[uint]*list.Element
	capacity int
}

var patientCache *patientLRU

// InitPatientNameCache initializes the LRU cache with given capacity.
// If capacity <= 0, a default of 1000 is used.
func InitPatientNameCache(capacity int) {
	if capacity <= 0 {
		capacity = 1000
	}
	patientCache = &patientLRU{
		ll:       list.New(),
		cache:    make(map[uint]*list.Element),
		capacity: capacity,
	}
}

// PatientNameCacheGet returns the cached name and true if present.
func PatientNameCacheGet(patientID uint) (string, bool) {
	if patientCache == nil {
		return "", false
	}
	patientCache.mu.Lock()
	defer patientCache.mu.Unlock()
	if el, ok := patientCache.cache[patientID]; ok {
		patientCache.ll.MoveToFront(el)
		return el.Value.(patientEntry).name, true
	}
	return "", false
}

// PatientNameCacheSet stores a name, evicting the least recently used entry
// when over capacity.
func PatientNameCacheSet(patientID uint, name string) {
	if patientCache == nil {
		return
	}
	patientCache.mu.Lock()
	defer patientCache.mu.Unlock()
	if el, ok := patientCache.cache[patientID]; ok {
		el.Value = patientEntry{patientID: patientID, name: name}
		patientCache.ll.MoveToFront(el)
		return
	}
	el := patientCache.ll.PushFront(patientEntry{patientID: patientID, name: name})
	patientCache.cache[patientID] = el
	if patientCache.ll.Len() > patientCache.capacity {
		oldest := patientCache.ll.Back()
		if oldest != nil {
			patientCache.ll.Remove(oldest)
			delete(patientCache.cache, oldest.Value.(patientEntry).patientID)
		}
	}
}

// PatientNameCacheInvalidate drops a patient from the cache. Call after
// renaming or deleting a patient.
func PatientNameCacheInvalidate(patientID uint) {
	if patientCache == nil {
		return
	}
	patientCache.mu.Lock()
	defer patientCache.mu.Unlock()
	if el, ok := patientCache.cache[patientID]; ok {
		patientCache.ll.Remove(el)
		delete(patientCache.cache, patientID)
	}
}

// GetPatientName resolves a patient's display name via the cache, falling
// back to the DB. Returns the empty string when the patient does not exist.
func GetPatientName(db *gorm.DB, patientID uint) string {
	if name, ok := PatientNameCacheGet(patientID); ok {
		return name
	}
	if db == nil {
		return ""
	}
	var patient model.Patient
	if err := db.Select("first_name", "last_name").First(&patient, patientID).Error; err != nil {
		return ""
	}
	name := patient.FullName()
	PatientNameCacheSet(patientID, name)
	return name
}
