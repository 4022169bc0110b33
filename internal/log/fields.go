package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldURL         = "url"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldWorkspaceID = "workspace_id"
	FieldUserID      = "user_id"
	FieldCacheName   = "cache_name"
	FieldDestination = "destination"
	FieldSessionKey  = "session_key"
)

// Components defines standard component names
const (
	ComponentApp        = "app"
	ComponentSession    = "session"
	ComponentAPI        = "api"
	ComponentStorage    = "storage"
	ComponentAssetCache = "asset_cache"
	ComponentProxy      = "proxy"
	ComponentCLI        = "cli"
)

// Operations defines standard operation names
const (
	OpHydrate    = "hydrate"
	OpLogin      = "login"
	OpLogout     = "logout"
	OpRefresh    = "refresh"
	OpRequest    = "request"
	OpInstall    = "install"
	OpActivate   = "activate"
	OpRevalidate = "revalidate"
	OpShutdown   = "shutdown"
	OpStartup    = "startup"
)

// LogFields provides a builder for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithWorkspace adds workspace id field
func (f LogFields) WithWorkspace(id int64) LogFields {
	f[FieldWorkspaceID] = id
	return f
}

// WithHTTP adds request/response fields for an API call
func (f LogFields) WithHTTP(method, path string, statusCode int, durationMs int64) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
