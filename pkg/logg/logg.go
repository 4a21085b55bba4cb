package logg

const (
	Layer     = "layer"
	Operation = "operation"
	URL       = "url"
	Selector  = "selector"
	Key       = "key"
	Tab       = "tab"
	Browser   = "browser"
	Session   = "session_id"
	Driver    = "driver"
)
