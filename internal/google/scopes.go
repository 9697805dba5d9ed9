package google

import (
	docs "google.golang.org/api/docs/v1"
	drive "google.golang.org/api/drive/v3"
	gmail "google.golang.org/api/gmail/v1"
)

// DefaultOAuthScopes are the scopes requested by the auth flow.
//
// The scopes provide access to:
//   - Gmail: search, read, and label messages (modify, labels)
//   - Google Drive: create folders and upload files
//   - Google Docs: write report documents
var DefaultOAuthScopes = []string{
	gmail.GmailModifyScope,
	gmail.GmailLabelsScope,
	drive.DriveScope,
	docs.DocumentsScope,
}
