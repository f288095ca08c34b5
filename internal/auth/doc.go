// Package auth provides authentication and authorisation for Argus Core.
//
// It implements the credential and session layer behind the admin API:
//   - Argon2id password hashing (OWASP 2025 recommendation)
//   - Credential verification with uniform invalid-credential failures
//     (unknown accounts and wrong passwords are indistinguishable)
//   - Long-lived sessions: a signed token plus a server-side row, with the
//     role denormalised at issuance so authorisation never touches the
//     user directory per request
//   - Single-use, time-limited password reset tokens consumed by a
//     conditional update so concurrent consumption cannot double-apply
//   - A static role→permission table (USER, EDITOR, ADMIN) that stored
//     Role rows may override
//
// The denormalised session role is a deliberate trade-off: a role change
// takes effect on the next login, not on in-flight sessions.
package auth
