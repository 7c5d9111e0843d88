// Package sanitizer normalizes free-form booking input before validation.
//
// Every function is idempotent and never fails: input that cannot be cleaned
// comes back as an empty string and is rejected later by the validator.
//
// Normalization includes:
//   - Identifiers: trim, drop control characters
//   - Currency codes: trim, upper-case ("rwf" becomes "RWF")
//   - Free text (cancellation reasons): collapse whitespace, cap length in runes
//   - Payment references: trim, drop control characters and inner whitespace
package sanitizer
