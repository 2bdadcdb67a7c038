// Package validation checks request input: struct tags through
// go-playground/validator, plus a small collector for hand-written checks.
//
// The custom "channel" tag accepts channel names and glob patterns:
//
//	type subscribeRequest struct {
//	    Channel string `json:"channel" validate:"required,channel"`
//	}
//	err := validation.Validate(req)
package validation
