// Package service implements the notes catalog (categories and topics) and
// admin authentication on top of the notes store.
//
// Every failure a caller can act on is an *apperrors.Error carrying a code
// the HTTP layer maps to a status and a localized message. Storage faults
// are wrapped plainly and surface as server errors.
package service
