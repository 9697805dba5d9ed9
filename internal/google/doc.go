// Package google provides OAuth2 credentials and authenticated HTTP clients
// for the Gmail, Drive and Docs APIs.
//
// The service runs unattended, so it authenticates with a long-lived refresh
// token obtained once through the interactive `auth` command. The refresh
// token comes from configuration or, failing that, from the token file the
// `auth` command writes to the user cache directory.
package google
