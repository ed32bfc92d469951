// Package accesstoken encodes, signs and renders the QR access tokens carried by reservation holders.
//
// Token wire format:
//
//	base64( JSON( {reservationId, userId, spaceId, validFrom, validUntil, iat, signature} ) )
//
// The signature is the hex encoded HMAC-SHA256 of the JSON object without the signature key,
// with keys serialized in exactly the order above.
package accesstoken
