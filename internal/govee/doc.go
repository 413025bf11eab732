// Package govee implements the HTTP client for the Govee cloud API.
//
// The cloud contract is fixed: all calls go to openapi.api.govee.com with
// the Govee-API-Key header, and responses carry an application-level "code"
// field that must equal 200 even when the HTTP status is 200. The client
// translates HTTP and envelope failures into a transient/permanent error
// taxonomy the gateway's retry logic is built on.
//
// The client performs no throttling itself; rate limiting is the gateway's
// job, which owns the single serialisation point for cloud calls.
package govee
