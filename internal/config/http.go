package config

const (
	HCType        = "Content-Type"
	HCacheControl = "Cache-Control"
	HConnection   = "Connection"

	CTypeJSON   = "application/json"
	CTypeHTML   = "text/html; charset=utf-8"
	CTypeText   = "text/plain; charset=utf-8"
	CTypeEvents = "text/event-stream"
)

// Form field name of the image upload.
const FormImageField = "image"
