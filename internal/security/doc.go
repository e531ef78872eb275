// Package security stores the portal credentials encrypted on disk.
//
// The key is derived with scrypt from the configured application salt and a
// random per-file salt; the payload is sealed with AES-256-GCM and carries an
// integrity hash checked before decryption. Decrypted bytes are held in
// SecureCredentials and zeroed once read.
package security
