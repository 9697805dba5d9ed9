package instrumentation

import "strings"

// Cardinality helpers for metrics labels.
//
// Request paths come from clients and are unbounded; they are folded to the
// routes the service actually serves before being used as label values.

// knownRoutes lists the HTTP routes exposed by the service.
var knownRoutes = []string{
	"/process",
	"/health",
	"/healthz",
	"/healthz/detailed",
	"/readyz",
	"/metrics",
}

// NormalizePath maps a request path to a known route, or "other".
//
// Example:
//
//	NormalizePath("/process")         // "/process"
//	NormalizePath("/healthz/")        // "/healthz"
//	NormalizePath("/wp-admin/x.php")  // "other"
func NormalizePath(path string) string {
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	for _, route := range knownRoutes {
		if path == route {
			return route
		}
	}
	return "other"
}

// Common operation types for Google API metrics.
const (
	OperationList     = "list"
	OperationGet      = "get"
	OperationCreate   = "create"
	OperationUpdate   = "update"
	OperationDownload = "download"
	OperationUpload   = "upload"
	OperationModify   = "modify"
	OperationSearch   = "search"
	OperationDelete   = "delete"
)
