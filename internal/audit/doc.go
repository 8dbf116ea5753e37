// Package audit owns the audit event model and the asynchronous dispatch
// path between engine operations and caller-supplied sinks.
package audit
