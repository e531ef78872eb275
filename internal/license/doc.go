// Package license decides whether a portal account may use the paid
// features of the application.
//
// The gate posts the login to the feature server, which answers with a JSON
// object carrying a boolean "status". A false status locks the feature; a
// positive answer is cached for a while so repeated runs do not hit the
// server again. A disabled gate lets every login through.
package license
