// Package http exposes the flexspace API over HTTP.
//
// All routes live under /api. Public routes:
//   - GET /api, GET /api/health: service banner and health probe.
//   - POST /api/auth/register, POST /api/auth/login: account creation and bearer
//     token issuance. Login answers {"access_token","expires_at","user"}.
//   - GET /api/spaces, GET /api/spaces/{id}: space catalog. Listing accepts the
//     type, capacity, floor, building and search query parameters.
//   - POST /api/qr/verify: scanner endpoint. Body {"qrData"}; always 200, with
//     accessGranted=false and a reason code on denial.
//
// Routes requiring "Authorization: Bearer <token>":
//   - GET /api/auth/me
//   - POST /api/spaces, PATCH /api/spaces/{id}, DELETE /api/spaces/{id},
//     GET /api/spaces/{id}/statistics
//   - POST /api/reservations, GET /api/reservations,
//     POST /api/reservations/check-availability, GET /api/reservations/{id},
//     DELETE /api/reservations/{id}
//   - GET /api/qr/generate/{reservationId}, GET /api/qr/access-logs/{reservationId}
//
// Bodies are camelCase JSON and timestamps are RFC 3339 in UTC with millisecond
// precision. Errors share one shape, {"statusCode","error","message"}, extended
// with "reason" and "errors" for validation failures and with "conflicts" and
// "canOverride" for booking conflicts. DTOs live next to the handlers that
// produce them.
package http
