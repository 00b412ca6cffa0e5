package model

// SyncState is the phase of a reconciliation attempt.
type SyncState string

// Reconciliation states.
const (
	SyncIdle     SyncState = "idle"
	SyncFetching SyncState = "fetching"
	SyncMerging  SyncState = "merging"
	SyncWriting  SyncState = "writing"
	SyncDone     SyncState = "done"
	SyncRetrying SyncState = "retrying"
	SyncFailed   SyncState = "failed"
)

// Active reports whether an attempt is in flight in this state.
func (s SyncState) Active() bool {
	switch s {
	case SyncFetching, SyncMerging, SyncWriting, SyncRetrying:
		return true
	}
	return false
}

// SyncStatus is the user-visible summary of synchronization.
type SyncStatus struct {
	State        SyncState `json:"state"`
	LastSyncTime int64     `json:"lastSyncTime,omitempty"`
	PendingOps   int       `json:"pendingOps"`
	IsOnline     bool      `json:"isOnline"`
	IsSyncing    bool      `json:"isSyncing"`
	LastError    string    `json:"lastError,omitempty"`
	AuthFailed   bool      `json:"authFailed,omitempty"`
}
