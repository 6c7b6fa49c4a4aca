// Package services sits between the CLI and the vault: it turns entries into
// live codes, moves encrypted backups to and from sinks, and converts
// otpauth URIs in bulk.
package services
