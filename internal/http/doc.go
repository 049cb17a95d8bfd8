// Package http exposes the back-office actions over JSON.
//
// Every response body is the action result envelope: {"success":true,"data":...}
// or {"success":false,"error":"...","code":"..."}, with the HTTP status
// mirroring the code.
//
// Public endpoints:
//   - POST /login: body {"email","password"}. Issues a session token returned
//     in the body, the `X-Session-Token` header and a `session_token` cookie.
//   - GET /healthz: liveness check.
//
// Endpoints behind RequireSession (Authorization: Bearer <token> or the
// session cookie):
//   - POST /logout: revokes the current session and clears the cookie.
//   - GET /events?start=&end=&tz=&customer_id=&status= or
//     GET /events?view=day|week|month&date=YYYY-MM-DD&tz=: calendar range
//     listing. start and end are local wall-clock values in tz.
//   - POST /events, GET|PUT|DELETE /events/{id},
//     POST /events/{id}/reschedule|cancel|complete: event lifecycle. Mutations
//     other than delete carry the caller's "version".
//   - GET /estimates?customer_id=&status=, POST /estimates,
//     GET|PUT|DELETE /estimates/{id}, POST /estimates/{id}/status,
//     POST /estimates/{id}/duplicate, GET /estimates/{id}/transitions,
//     POST /estimates/{id}/line-items with {"op":"add|remove|update",
//     "item_id","description","quantity","unit_price","version"}.
//
// Request and response DTOs live alongside their handlers.
package http
