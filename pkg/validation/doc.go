// Package validation registers rules against model attributes and runs them
// to produce an Error Set. Every rule runs on every call so one call reports
// every violation; messages for one attribute keep rule registration order.
package validation
