package mailrelay

import (
	"bytes"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetVersionInfo(t *testing.T) {
	info := GetVersionInfo()

	assert.Equal(t, Version, info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
	assert.Contains(t, info.String(), "Version: "+Version)
	assert.Contains(t, info.UserAgent(), "lattiq-mailrelay/"+Version)
}

func TestVersionInfo_IsDevBuild(t *testing.T) {
	assert.True(t, (&VersionInfo{Version: "dev", GitCommit: "abc"}).IsDevBuild())
	assert.True(t, (&VersionInfo{Version: "1.2.0", GitCommit: "abc-dirty"}).IsDevBuild())
	assert.True(t, (&VersionInfo{Version: "1.2.0", GitCommit: "unknown"}).IsDevBuild())
	assert.False(t, (&VersionInfo{Version: "1.2.0", GitCommit: "abc123"}).IsDevBuild())
}

func TestVersionInfo_StringOmitsUnknown(t *testing.T) {
	info := &VersionInfo{Version: "1.0.0", GitCommit: "unknown", BuildDate: "unknown", GoVersion: "go1.25", Platform: "linux/amd64"}
	assert.Equal(t, "Version: 1.0.0, Go: go1.25, Platform: linux/amd64", info.String())
}

func TestPrintVersion(t *testing.T) {
	var buf bytes.Buffer
	PrintVersion(&buf)
	assert.Contains(t, buf.String(), "Lattiq Mail Relay")
	assert.Contains(t, buf.String(), "Version: ")
}
