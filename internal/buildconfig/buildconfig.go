package buildconfig

// Build-time variables injected via ldflags
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = ""
)

func Version() string {
	return version
}

func Commit() string {
	return commit
}

// Info is served on /version.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date,omitempty"`
	Policy    string `json:"policy,omitempty"`
}

// VersionInfo describes this build and the dialogue policy it serves.
func VersionInfo(policy string) Info {
	return Info{
		Version:   version,
		Commit:    commit,
		BuildDate: buildDate,
		Policy:    policy,
	}
}
