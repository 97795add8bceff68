package version

import (
	"fmt"
	"runtime"
)

// These variables are set via ldflags during build.
var (
	Version   = "dev"
	Commit    = "none"
	Date      = "unknown"
	GoVersion = runtime.Version()
)

func Platform() string {
	return runtime.GOOS + "/" + runtime.GOARCH
}

func Summary() string {
	v := Version
	if v == "" {
		v = "dev"
	}
	if Commit != "" && Commit != "none" {
		short := Commit
		if len(short) > 7 {
			short = short[:7]
		}
		return fmt.Sprintf("%s (%s)", v, short)
	}
	return v
}

// UserAgent is the User-Agent header sent to the FAQ backend.
func UserAgent() string {
	v := Version
	if v == "" {
		v = "dev"
	}
	return "faqchat/" + v
}

// Details is the multi-line report printed by the version command.
func Details() string {
	return fmt.Sprintf("faqchat %s\nbuilt:    %s\ngo:       %s\nplatform: %s", Summary(), Date, GoVersion, Platform())
}
