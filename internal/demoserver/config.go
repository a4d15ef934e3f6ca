package demoserver

import (
	"net"
	"strconv"
)

// Config controls where the demo pages are served and how they start out.
type Config struct {
	// Host is the bind address; empty binds every interface.
	Host string
	Port int

	// InitialProfile is the header profile every page starts with.
	InitialProfile string
}

func DefaultConfig() Config {
	return Config{
		Host:           "localhost",
		Port:           9999,
		InitialProfile: ProfileInsecure,
	}
}

// Addr is the listen address built from Host and Port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
