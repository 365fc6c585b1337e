package ir

// Version constants for the journal format and engine.
const (
	// JournalVersion is the journal record schema version.
	JournalVersion = "1"

	// EngineVersion is the reduxengine version stamped on every commit.
	EngineVersion = "0.1.0"
)
