// Package mail provides email notification functionality for the account
// recovery tool, including SMTP sending with retry logic, HTML template
// rendering, and localized password reset message composition.
package mail
