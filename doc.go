// Package auth is the identity core of a multi tenant pharmacy and hospital
// inventory system: tenant registration, password login, signed session
// tokens and a fixed role policy over pages and actions.
//
// Tenants:
//   - An Organization is either a RETAIL_PHARMACY or a HOSPITAL. The Mode a
//     client runs in (RETAIL or HOSPITAL) follows from it and only changes
//     navigation labels, never permissions.
//   - RegisterUserHandler creates the user and, unless an organization code
//     is given, a fresh organization in one transaction. A code that does
//     not resolve is ErrInvalidOrganization.
//
// Credentials:
//   - Passwords are stored as bcrypt hashes. Auther.Login answers
//     ErrInvalidCredentials for an unknown email and a wrong password alike.
//   - Tokens are HS256 JWTs signed through a KeyRing, so retired keys keep
//     validating while they are rotated out.
//
// Policy:
//   - CanAccessPage and CanPerformAction are pure table lookups. Unknown
//     roles, pages and actions are denied.
//
// Activity sinks:
//   - ActivitySink receives registration, login and seed events. Sinks run
//     best effort, errors are logged and never fail the request.
package auth
