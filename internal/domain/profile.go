package domain

type ProfileStatus string

const (
	ProfileReady     ProfileStatus = "ready"
	ProfileFirstTime ProfileStatus = "first_time"
	ProfileError     ProfileStatus = "error"
)

// ChromeProfile is a browser user-data directory reused across runs so that
// sign-ins persist.
type ChromeProfile struct {
	Name    string        `json:"name"`
	Path    string        `json:"path"`
	Status  ProfileStatus `json:"status"`
	Message string        `json:"message"`
}

func (p ChromeProfile) Usable() bool {
	return p.Status == ProfileReady
}
