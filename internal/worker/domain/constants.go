package domain

// Job outcome status values sent to the notification receiver
const (
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// Storage areas
const (
	AreaOriginals    = "originals"
	AreaPreservation = "preservation"
)

// PreservedFormat is the format tag of every normalized derivative
const PreservedFormat = "pdf"
