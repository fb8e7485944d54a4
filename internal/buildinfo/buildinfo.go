// Package buildinfo carries version metadata set at link time, e.g.
//
//	go build -ldflags "-X fleetopt/internal/buildinfo.Version=v1.2.0"
package buildinfo

import "runtime/debug"

var (
    Version = "dev"
    Commit  = ""
    BuiltAt = ""
)

// Info reports the link-time values. A missing commit falls back to the VCS
// revision the toolchain stamped into the binary.
func Info() map[string]string {
    commit := Commit
    goVersion := ""
    if bi, ok := debug.ReadBuildInfo(); ok {
        goVersion = bi.GoVersion
        for _, s := range bi.Settings {
            if s.Key == "vcs.revision" && commit == "" { commit = s.Value }
        }
    }
    return map[string]string{
        "version":   Version,
        "commit":    commit,
        "builtAt":   BuiltAt,
        "goVersion": goVersion,
    }
}
