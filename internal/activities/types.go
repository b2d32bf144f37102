package activities

// SyncResult contains the result of synchronizing one tracker event
type SyncResult struct {
	Summary  string
	Rejected bool
}
