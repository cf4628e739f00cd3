package config

const (
	// Startup errors
	ErrLoadConfigFmt      = "Failed to load config: %v"
	ErrOpenStorageFmt     = "Failed to open storage: %v"
	ErrCreateDelivererFmt = "Failed to create deliverer: %v"
	ErrStartSessionFmt    = "Failed to start session: %v"

	// Request errors
	ErrInvalidJSON         = "Invalid JSON body"
	ErrInvalidTemplateID   = "Invalid template id"
	ErrInvalidImage        = "Invalid image upload"
	ErrInternalServerError = "Internal server error"

	// Config errors
	ErrWriteConfigContentFmt = "Failed to write config content: %v"
)
