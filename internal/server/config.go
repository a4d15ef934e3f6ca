package server

import (
	"github.com/raysh454/hdrscan/internal/app"
	"github.com/raysh454/hdrscan/internal/logging"
)

type Config struct {
	// ListenAddr is the HTTP listen address for the API server.
	ListenAddr string

	// AppConfig builds a new Application when App is nil.
	AppConfig *app.Config
	// App is used as is and left open by Close.
	App *app.Application

	Logger logging.Logger
}
