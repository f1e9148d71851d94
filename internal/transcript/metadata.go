package transcript

// DefaultUserType is used when the metadata record carries no userType.
const DefaultUserType = "external"

// Metadata is the session-level context copied onto synthesized records.
type Metadata struct {
	SessionID string
	Cwd       string
	Version   string
	GitBranch string
	Slug      string
	UserType  string
}

// SessionMetadata reads metadata from the first record with a sessionId. The
// zero Metadata is returned when no record has one.
func SessionMetadata(entries []Entry) Metadata {
	for _, e := range entries {
		rec := e.Record
		if rec == nil || rec.SessionID() == "" {
			continue
		}
		userType := DefaultUserType
		if rec.Has("userType") {
			userType = rec.str("userType")
		}
		return Metadata{
			SessionID: rec.SessionID(),
			Cwd:       rec.str("cwd"),
			Version:   rec.str("version"),
			GitBranch: rec.str("gitBranch"),
			Slug:      rec.str("slug"),
			UserType:  userType,
		}
	}
	return Metadata{}
}
