// Package validation validates configuration structs and request payloads.
//
// Struct tags are checked with go-playground/validator; cross-field rules
// that tags cannot express (latency within [step, duration]) go through
// the fluent Validator. Both report failures as *errors.AppError with a
// per-field breakdown under Details["fields"].
package validation
