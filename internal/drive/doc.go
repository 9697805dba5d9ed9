// Package drive provides a client for the Google Drive API scoped to what the
// organizer needs: finding and creating property folders under a parent
// folder, listing their contents and uploading attachments.
//
// Folder lookups always filter on the folder MIME type and exclude trashed
// files. Drive does not enforce unique names, so FindFolder returns the first
// match and callers look up before they create.
//
// Store adapts the Client to the organizer's folder store interface.
//
// Example usage:
//
//	client, err := drive.NewClient(ctx, option.WithHTTPClient(httpClient))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	folder, err := client.FindFolder(ctx, parentID, "20240601_渋谷_12345")
package drive
