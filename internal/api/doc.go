// Package api serves the stored analysis results as JSON under /api/v1.
//
// Routes:
//
//	GET /api/v1/health           overall state and analysis counts
//	GET /api/v1/analyses         every analysis, ordered by name
//	GET /api/v1/analyses/{name}  one analysis
//	GET /api/v1/snapshot         full dump with generation time
package api
