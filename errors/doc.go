// Package errors provides unified error handling for ssehub.
//
// A single tagged type, AppError, replaces an exception hierarchy: the Code
// field selects the variant and every variant shares message, HTTP status and
// cause. Lower layers return the most specific constructor; the HTTP boundary
// renders ToResponse with HTTPStatus and never exposes Cause.
package errors
