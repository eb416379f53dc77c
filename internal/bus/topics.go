package bus

// Topic identifies an event stream on the bus.
type Topic string

const (
	// TopicDataUpdated fires after any repository mutation. Payload: DataChange.
	TopicDataUpdated Topic = "data:updated"
	// TopicDashboardUpdate asks dashboard views to re-render. Payload: DataChange.
	TopicDashboardUpdate Topic = "dashboard:update"
	// TopicSystemError surfaces non-fatal failures. Payload: SystemError.
	TopicSystemError Topic = "system:error"
	// TopicSyncStatus reports remote sync state transitions.
	TopicSyncStatus Topic = "sync:status"
)

// DataChange describes which collection changed.
type DataChange struct {
	Collection string
}

// SystemError carries a recovered failure for display or logging.
type SystemError struct {
	Op  string
	Err error
}
