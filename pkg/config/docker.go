package config

import (
	"os"
	"sync"
)

var (
	inDockerOnce sync.Once
	inDocker     bool

	// dockerCheck is replaced in tests.
	dockerCheck = func() bool {
		_, err := os.Stat("/.dockerenv")
		return err == nil
	}
)

// IsRunningInDocker reports whether the process runs inside a Docker container.
// The result is cached after the first call.
func IsRunningInDocker() bool {
	inDockerOnce.Do(func() {
		inDocker = dockerCheck()
	})
	return inDocker
}

// ResolveHostForDocker maps loopback storage hosts to host.docker.internal when
// running in a container, so a postgres or redis on the host stays reachable.
func ResolveHostForDocker(host string) string {
	if !IsRunningInDocker() {
		return host
	}
	if host == "localhost" || host == "127.0.0.1" {
		return "host.docker.internal"
	}
	return host
}
